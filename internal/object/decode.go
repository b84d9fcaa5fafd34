package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// CorruptReason says which structural rule an encoded object broke.
type CorruptReason string

const (
	ReasonMissingSeparator  CorruptReason = "missing separator"
	ReasonMalformedHeader   CorruptReason = "malformed header"
	ReasonUnknownKind       CorruptReason = "unknown kind"
	ReasonLengthMismatch    CorruptReason = "length mismatch"
	ReasonMalformedTree     CorruptReason = "malformed tree line"
	ReasonMalformedSnapshot CorruptReason = "malformed snapshot"
)

// CorruptError reports an encoding that cannot be decoded.
type CorruptError struct {
	Reason CorruptReason
	Detail string
}

func (e *CorruptError) Error() string {
	if e.Detail == "" {
		return "corrupt object: " + string(e.Reason)
	}
	return fmt.Sprintf("corrupt object: %s: %s", e.Reason, e.Detail)
}

func corrupt(reason CorruptReason, format string, args ...interface{}) error {
	return &CorruptError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Decode parses a canonical encoding back into an Object.
func Decode(encoded []byte) (Object, error) {
	nul := bytes.IndexByte(encoded, 0)
	if nul < 0 {
		return nil, &CorruptError{Reason: ReasonMissingSeparator}
	}
	kind, length, err := ParseHeader(encoded[:nul])
	if err != nil {
		return nil, err
	}
	body := encoded[nul+1:]
	if length != len(body) {
		return nil, corrupt(ReasonLengthMismatch, "header says %d, body has %d", length, len(body))
	}

	switch kind {
	case KindBlob:
		data := make([]byte, len(body))
		copy(data, body)
		return &Blob{Data: data}, nil
	case KindTree:
		return decodeTree(body)
	case KindSnapshot:
		return decodeSnapshot(body)
	default:
		return nil, corrupt(ReasonUnknownKind, "%q", kind)
	}
}

// ParseHeader parses the "<kind> <length>" header that precedes the NUL
// separator. The length must be written without sign or leading zeros.
func ParseHeader(header []byte) (Kind, int, error) {
	kindStr, lenStr, ok := strings.Cut(string(header), " ")
	if !ok {
		return "", 0, corrupt(ReasonMalformedHeader, "%q", header)
	}
	length, err := strconv.Atoi(lenStr)
	if err != nil || length < 0 || strconv.Itoa(length) != lenStr {
		return "", 0, corrupt(ReasonMalformedHeader, "bad length %q", lenStr)
	}
	switch k := Kind(kindStr); k {
	case KindBlob, KindTree, KindSnapshot:
		return k, length, nil
	default:
		return "", 0, corrupt(ReasonUnknownKind, "%q", kindStr)
	}
}

func decodeTree(body []byte) (*Tree, error) {
	t := &Tree{}
	if len(body) == 0 {
		return t, nil
	}
	if body[len(body)-1] != '\n' {
		return nil, corrupt(ReasonMalformedTree, "unterminated last line")
	}
	for i, line := range strings.Split(string(body[:len(body)-1]), "\n") {
		digestStr, name, ok := strings.Cut(line, " ")
		if !ok || name == "" {
			return nil, corrupt(ReasonMalformedTree, "line %d: %q", i+1, line)
		}
		d, err := parseHexDigest(digestStr)
		if err != nil {
			return nil, corrupt(ReasonMalformedTree, "line %d: bad digest %q", i+1, digestStr)
		}
		t.Entries = append(t.Entries, TreeEntry{Digest: d, Name: name})
	}
	return t, nil
}

func decodeSnapshot(body []byte) (*Snapshot, error) {
	meta, comment, ok := strings.Cut(string(body), "\n\n")
	if !ok {
		return nil, corrupt(ReasonMalformedSnapshot, "no blank line before comment")
	}
	lines := strings.Split(meta, "\n")

	tree, err := parseHexDigest(lines[0])
	if err != nil {
		return nil, corrupt(ReasonMalformedSnapshot, "tree line %q", lines[0])
	}
	s := &Snapshot{Tree: tree, Comment: comment}

	if len(lines) < 2 || !strings.HasPrefix(lines[1], authorPrefix) {
		return nil, corrupt(ReasonMalformedSnapshot, "missing author line")
	}
	s.Author = strings.TrimPrefix(lines[1], authorPrefix)

	for _, line := range lines[2:] {
		if !strings.HasPrefix(line, parentPrefix) {
			return nil, corrupt(ReasonMalformedSnapshot, "unexpected line %q", line)
		}
		p, err := parseHexDigest(strings.TrimPrefix(line, parentPrefix))
		if err != nil {
			return nil, corrupt(ReasonMalformedSnapshot, "parent line %q", line)
		}
		s.Parents = append(s.Parents, p)
	}
	return s, nil
}

func parseHexDigest(s string) (Digest, error) {
	if len(s) != 2*DigestSize {
		return Zero, fmt.Errorf("want %d hex characters, got %d", 2*DigestSize, len(s))
	}
	var d Digest
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return Zero, err
	}
	return d, nil
}
