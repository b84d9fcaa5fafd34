package fuse

import (
	"hash/fnv"

	"github.com/systemshift/minvcs/internal/object"
)

// stableIno returns a stable inode number for a given path string.
func stableIno(path string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(path))
	return h.Sum64()
}

// objectIno numbers stored objects by content, so identical blobs or trees
// share an inode wherever they appear.
func objectIno(d object.Digest, kind object.Kind) uint64 {
	return stableIno(string(kind) + ":" + d.String())
}

// snapshotIno numbers the directory showing a snapshot's tree.
func snapshotIno(d object.Digest) uint64 {
	return stableIno("snapshots/" + d.String())
}
