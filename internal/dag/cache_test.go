package dag

import (
	"errors"
	"testing"

	"github.com/systemshift/minvcs/internal/object"
)

func TestObjectCache(t *testing.T) {
	repo, fs := openTestRepo(t)
	cache, err := NewObjectCache(repo.Objects, 2)
	if err != nil {
		t.Fatalf("NewObjectCache: %v", err)
	}

	tree, _ := repo.Objects.Put(&object.Tree{})
	if _, err := cache.GetTree(tree); err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}

	// Served from memory once cached.
	if err := fs.Remove(repo.Objects.Path(tree)); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := cache.GetTree(tree); err != nil {
		t.Errorf("GetTree after removal: %v", err)
	}

	if _, err := cache.GetSnapshot(tree); err == nil {
		t.Error("GetSnapshot on a tree succeeded")
	}

	missing := object.DigestOf(&object.Blob{Data: []byte("nope")})
	if _, err := cache.Get(missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d after miss, want 1", cache.Len())
	}
}

func TestObjectCache_InvalidSize(t *testing.T) {
	repo, _ := openTestRepo(t)
	if _, err := NewObjectCache(repo.Objects, 0); err == nil {
		t.Error("NewObjectCache(0) succeeded")
	}
}

func TestObjectCache_Kind(t *testing.T) {
	repo, _ := openTestRepo(t)
	cache, err := NewObjectCache(repo.Objects, 4)
	if err != nil {
		t.Fatalf("NewObjectCache: %v", err)
	}
	blob, _ := repo.Objects.Put(&object.Blob{Data: []byte("hello")})
	tree, _ := repo.Objects.Put(&object.Tree{})

	kind, err := cache.Kind(blob)
	if err != nil {
		t.Fatalf("Kind: %v", err)
	}
	if kind != object.KindBlob {
		t.Errorf("Kind = %s, want %s", kind, object.KindBlob)
	}
	if cache.Len() != 0 {
		t.Errorf("Len = %d after Kind, want 0", cache.Len())
	}

	if _, err := cache.Get(tree); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if kind, err := cache.Kind(tree); err != nil || kind != object.KindTree {
		t.Errorf("Kind(cached tree) = %s, %v", kind, err)
	}
}
