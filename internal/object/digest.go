package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	gocid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
)

// DigestSize is the length in bytes of a SHA2-256 digest.
const DigestSize = 32

// Digest identifies an object: the SHA2-256 hash of its canonical encoding.
// The zero Digest means "no object".
type Digest [DigestSize]byte

// Zero is the absent Digest.
var Zero Digest

// Sum computes the Digest of an object's full canonical encoding.
func Sum(encoded []byte) Digest {
	mh, err := multihash.Sum(encoded, multihash.SHA2_256, -1)
	if err != nil {
		// SHA2_256 is always registered with go-multihash.
		panic("object: sha2-256 multihash: " + err.Error())
	}
	var d Digest
	copy(d[:], mh[len(mh)-DigestSize:])
	return d
}

// String renders d as lowercase hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the absent Digest.
func (d Digest) IsZero() bool {
	return d == Zero
}

// Less orders digests by their hex rendering. Lowercase hex sorts the
// same way as the bytes it encodes.
func (d Digest) Less(other Digest) bool {
	return bytes.Compare(d[:], other[:]) < 0
}

// Multihash wraps d as a sha2-256 multihash.
func (d Digest) Multihash() multihash.Multihash {
	mh, err := multihash.Encode(d[:], multihash.SHA2_256)
	if err != nil {
		panic("object: encode multihash: " + err.Error())
	}
	return mh
}

// CID returns d as a CIDv1 with the raw codec, for tools that speak IPLD.
func (d Digest) CID() gocid.Cid {
	return gocid.NewCidV1(gocid.Raw, d.Multihash())
}

// CIDString renders the CID of d in base32lower multibase.
func (d Digest) CIDString() string {
	encoded, _ := multibase.Encode(multibase.Base32, d.CID().Bytes())
	return encoded
}

// ParseDigest parses a 64-character hex digest or a multibase CID string
// whose multihash is sha2-256.
func ParseDigest(s string) (Digest, error) {
	s = strings.TrimSpace(s)
	if len(s) == 2*DigestSize {
		var d Digest
		if _, err := hex.Decode(d[:], []byte(s)); err == nil {
			return d, nil
		}
	}
	return parseCID(s)
}

func parseCID(s string) (Digest, error) {
	_, raw, err := multibase.Decode(s)
	if err != nil {
		return Zero, fmt.Errorf("parse digest %q: neither hex nor multibase", s)
	}
	c, err := gocid.Cast(raw)
	if err != nil {
		return Zero, fmt.Errorf("parse digest %q: %w", s, err)
	}
	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return Zero, fmt.Errorf("decode multihash: %w", err)
	}
	if decoded.Code != multihash.SHA2_256 || len(decoded.Digest) != DigestSize {
		return Zero, fmt.Errorf("parse digest %q: unsupported hash %s", s, decoded.Name)
	}
	var d Digest
	copy(d[:], decoded.Digest)
	return d, nil
}

// MustParseDigest is ParseDigest for constants in tests and tables.
func MustParseDigest(s string) Digest {
	d, err := ParseDigest(s)
	if err != nil {
		panic(err)
	}
	return d
}
