// Package object defines the three stored object kinds and their canonical
// encoding: "<kind> <body-length>\x00<body>".
package object

import (
	"bytes"
	"sort"
	"strconv"
)

// Kind is the type tag written in an object header.
type Kind string

const (
	KindBlob     Kind = "file"
	KindTree     Kind = "directory"
	KindSnapshot Kind = "snapshot"
)

// Object is a Blob, Tree, or Snapshot.
type Object interface {
	Kind() Kind
	// Body returns the kind-specific encoding that follows the header.
	Body() []byte
}

var (
	_ Object = (*Blob)(nil)
	_ Object = (*Tree)(nil)
	_ Object = (*Snapshot)(nil)
)

// Blob is raw file content.
type Blob struct {
	Data []byte
}

func (b *Blob) Kind() Kind   { return KindBlob }
func (b *Blob) Body() []byte { return b.Data }

// TreeEntry names one child of a Tree.
type TreeEntry struct {
	Digest Digest
	Name   string
}

// Tree is a directory listing.
type Tree struct {
	Entries []TreeEntry
}

func (t *Tree) Kind() Kind { return KindTree }

// Body encodes one "<digest> <name>\n" line per entry, sorted by digest then name.
// t.Entries itself is left in place.
func (t *Tree) Body() []byte {
	entries := SortedEntries(t.Entries)
	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString(e.Digest.String())
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// SortedEntries returns a copy of entries in canonical order.
func SortedEntries(entries []TreeEntry) []TreeEntry {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Digest != sorted[j].Digest {
			return sorted[i].Digest.Less(sorted[j].Digest)
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

// Lookup finds the entry called name.
func (t *Tree) Lookup(name string) (TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return TreeEntry{}, false
}

// Snapshot is a point-in-time record of a root tree.
type Snapshot struct {
	Tree    Digest
	Parents []Digest
	Author  string
	Comment string
}

const (
	authorPrefix = "author:"
	parentPrefix = "parent:"
)

func (s *Snapshot) Kind() Kind { return KindSnapshot }

func (s *Snapshot) Body() []byte {
	var buf bytes.Buffer
	buf.WriteString(s.Tree.String())
	buf.WriteByte('\n')
	buf.WriteString(authorPrefix)
	buf.WriteString(s.Author)
	buf.WriteByte('\n')
	for _, p := range s.Parents {
		buf.WriteString(parentPrefix)
		buf.WriteString(p.String())
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.WriteString(s.Comment)
	return buf.Bytes()
}

// Header returns "<kind> <length>\x00".
func Header(kind Kind, length int) []byte {
	h := make([]byte, 0, len(kind)+12)
	h = append(h, kind...)
	h = append(h, ' ')
	h = strconv.AppendInt(h, int64(length), 10)
	return append(h, 0)
}

// Encode returns the canonical encoding of o.
func Encode(o Object) []byte {
	body := o.Body()
	return append(Header(o.Kind(), len(body)), body...)
}

// DigestOf is Sum(Encode(o)).
func DigestOf(o Object) Digest {
	return Sum(Encode(o))
}
