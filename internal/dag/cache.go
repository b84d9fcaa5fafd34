package dag

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/systemshift/minvcs/internal/object"
)

// ObjectCache is a least-recently-used cache of decoded objects in front
// of an ObjectStore. It is safe for concurrent use.
type ObjectCache struct {
	c     *lru.Cache // Digest->object.Object
	store *ObjectStore
}

// NewObjectCache produces an ObjectCache backed by store and holding up to
// size objects.
func NewObjectCache(store *ObjectStore, size int) (*ObjectCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create object cache: %w", err)
	}
	return &ObjectCache{c: c, store: store}, nil
}

// Get returns the object with digest d.
func (oc *ObjectCache) Get(d object.Digest) (object.Object, error) {
	if got, ok := oc.c.Get(d); ok {
		return got.(object.Object), nil
	}
	o, err := oc.store.Get(d)
	if err != nil {
		return nil, err
	}
	oc.c.Add(d, o)
	return o, nil
}

// Kind reports the kind of object d. A cached object answers directly
// without being marked as used. Otherwise only the stored header is read
// and nothing is added to the cache.
func (oc *ObjectCache) Kind(d object.Digest) (object.Kind, error) {
	if got, ok := oc.c.Peek(d); ok {
		return got.(object.Object).Kind(), nil
	}
	return oc.store.Kind(d)
}

// GetTree returns the tree with digest d.
func (oc *ObjectCache) GetTree(d object.Digest) (*object.Tree, error) {
	o, err := oc.Get(d)
	if err != nil {
		return nil, err
	}
	tree, ok := o.(*object.Tree)
	if !ok {
		return nil, fmt.Errorf("object %s is a %s, not a directory", d, o.Kind())
	}
	return tree, nil
}

// GetSnapshot returns the snapshot with digest d.
func (oc *ObjectCache) GetSnapshot(d object.Digest) (*object.Snapshot, error) {
	o, err := oc.Get(d)
	if err != nil {
		return nil, err
	}
	snap, ok := o.(*object.Snapshot)
	if !ok {
		return nil, fmt.Errorf("object %s is a %s, not a snapshot", d, o.Kind())
	}
	return snap, nil
}

// Len reports the number of cached objects.
func (oc *ObjectCache) Len() int {
	return oc.c.Len()
}
