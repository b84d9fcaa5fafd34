package dag

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/systemshift/minvcs/internal/object"
)

// Snapshot records the current state of the directory at path as a new
// snapshot whose parent is the current head, then moves head to it.
func (r *Repository) Snapshot(path, author, comment string) (d object.Digest, err error) {
	if strings.Contains(author, "\n") {
		return object.Zero, ErrInvalidAuthor
	}

	if err := r.Head.Lock(); err != nil {
		return object.Zero, err
	}
	defer func() {
		if uerr := r.Head.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}()

	// 1. Read current head as parent
	head, err := r.Head.Read()
	if err != nil {
		return object.Zero, err
	}

	// 2. Build the tree
	tree, err := r.Trees.BuildTree(path)
	if err != nil {
		return object.Zero, err
	}

	// 3. Build snapshot object
	snap := &object.Snapshot{
		Tree:    tree,
		Author:  author,
		Comment: comment,
	}
	if !head.IsZero() {
		snap.Parents = []object.Digest{head}
	}

	// 4. Store it
	d, err = r.Objects.Put(snap)
	if err != nil {
		return object.Zero, fmt.Errorf("store snapshot: %w", err)
	}

	// 5. Update head
	if err := r.Head.Write(d); err != nil {
		return object.Zero, err
	}

	r.log.Info("snapshot",
		zap.Stringer("digest", d),
		zap.Stringer("tree", tree),
		zap.Int("parents", len(snap.Parents)))
	return d, nil
}

// Store records path as blob and tree objects without touching head.
func (r *Repository) Store(path string) (object.Digest, error) {
	return r.Trees.Build(path)
}
