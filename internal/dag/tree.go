package dag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/systemshift/minvcs/internal/object"
)

// ExcludesFile names the optional per-directory exclusion list.
const ExcludesFile = ".minvcs_excludes"

// TreeBuilder turns files and directories under a managed root into
// stored blob and tree objects.
type TreeBuilder struct {
	fs    afero.Fs
	root  string
	meta  string // metadata directory, never hashed
	store *ObjectStore
	log   *zap.Logger
}

// NewTreeBuilder creates a TreeBuilder for the managed root. Objects are
// written to store.
func NewTreeBuilder(fs afero.Fs, root string, store *ObjectStore, log *zap.Logger) *TreeBuilder {
	if log == nil {
		log = zap.NewNop()
	}
	root = filepath.Clean(root)
	return &TreeBuilder{
		fs:    fs,
		root:  root,
		meta:  filepath.Join(root, MetaDirName),
		store: store,
		log:   log,
	}
}

// Build stores the file or directory at path and returns its digest.
// Directories are stored recursively. Extra exclusions are paths, absolute
// or relative to the root, that are skipped wherever they appear as a child.
func (b *TreeBuilder) Build(path string, exclusions ...string) (object.Digest, error) {
	excluded := map[string]bool{b.meta: true}
	for _, e := range exclusions {
		if !filepath.IsAbs(e) {
			e = filepath.Join(b.root, e)
		}
		excluded[filepath.Clean(e)] = true
	}
	return b.build(filepath.Clean(path), excluded)
}

// BuildTree is Build for paths that must be directories. A regular file
// in scope is rejected with ErrNotDirectory before anything is stored.
func (b *TreeBuilder) BuildTree(path string, exclusions ...string) (object.Digest, error) {
	path = filepath.Clean(path)
	if info, err := b.lstat(path); err == nil && b.inScope(path) && !info.IsDir() {
		return object.Zero, &PathError{Path: path, Err: ErrNotDirectory}
	}
	return b.Build(path, exclusions...)
}

func (b *TreeBuilder) build(path string, excluded map[string]bool) (object.Digest, error) {
	info, err := b.lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return object.Zero, &PathError{Path: path, Err: ErrPathNotFound}
	}
	if err != nil {
		return object.Zero, fmt.Errorf("stat %s: %w", path, err)
	}
	if !b.inScope(path) {
		return object.Zero, &PathError{Path: path, Err: ErrOutOfScope}
	}

	var o object.Object
	switch {
	case info.IsDir():
		tree, err := b.buildTree(path, excluded)
		if err != nil {
			return object.Zero, err
		}
		o = tree
	case info.Mode().IsRegular():
		data, err := afero.ReadFile(b.fs, path)
		if err != nil {
			return object.Zero, fmt.Errorf("read file %s: %w", path, err)
		}
		o = &object.Blob{Data: data}
	default:
		return object.Zero, &PathError{Path: path, Err: ErrUnsupportedPathType}
	}

	d, err := b.store.Put(o)
	if err != nil {
		return object.Zero, err
	}
	b.log.Debug("stored path",
		zap.String("path", path),
		zap.Stringer("digest", d),
		zap.String("kind", string(o.Kind())))
	return d, nil
}

func (b *TreeBuilder) buildTree(dir string, excluded map[string]bool) (*object.Tree, error) {
	if err := b.readExcludes(dir, excluded); err != nil {
		return nil, err
	}

	names, err := b.readDirNames(dir)
	if err != nil {
		return nil, err
	}

	tree := &object.Tree{}
	for _, name := range names {
		child := filepath.Join(dir, name)
		if excluded[child] {
			b.log.Info("excluded", zap.String("path", child))
			continue
		}
		if !object.ValidName(name) {
			b.log.Warn("skipping unrepresentable name", zap.String("dir", dir), zap.ByteString("name", []byte(name)))
			continue
		}
		d, err := b.build(child, excluded)
		if err != nil {
			return nil, err
		}
		tree.Entries = append(tree.Entries, object.TreeEntry{Digest: d, Name: name})
	}
	return tree, nil
}

// readExcludes adds the entries of dir's exclusion file, joined to dir.
func (b *TreeBuilder) readExcludes(dir string, excluded map[string]bool) error {
	path := filepath.Join(dir, ExcludesFile)
	data, err := afero.ReadFile(b.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read excludes %s: %w", path, err)
	}
	b.log.Info("found exclusion file", zap.String("path", path))
	for _, line := range strings.Split(string(data), "\n") {
		item := strings.TrimSpace(line)
		if item == "" {
			continue
		}
		excluded[filepath.Join(dir, item)] = true
	}
	return nil
}

// readDirNames lists dir in the order the filesystem returns.
func (b *TreeBuilder) readDirNames(dir string) ([]string, error) {
	f, err := b.fs.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open directory %s: %w", dir, err)
	}
	defer f.Close()
	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	return names, nil
}

func (b *TreeBuilder) lstat(path string) (os.FileInfo, error) {
	if l, ok := b.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return b.fs.Stat(path)
}

// inScope reports whether path is the root or below it, and outside the
// metadata directory.
func (b *TreeBuilder) inScope(path string) bool {
	if !within(b.root, path) {
		return false
	}
	return !within(b.meta, path)
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
