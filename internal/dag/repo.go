package dag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// MetaDirName is the metadata directory at the top of every managed root.
const MetaDirName = ".minvcs"

// Repository is the top-level facade for a managed root.
type Repository struct {
	fs      afero.Fs
	root    string
	log     *zap.Logger
	Objects *ObjectStore
	Head    *HeadStore
	Trees   *TreeBuilder
}

type options struct {
	log      *zap.Logger
	level    int
	lock     bool
	lockWait time.Duration
}

// Option configures Init and Open.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithCompressionLevel sets the zlib level used for new objects.
func WithCompressionLevel(level int) Option {
	return func(o *options) { o.level = level }
}

// WithLocking enables the advisory head lock. It only takes effect on the
// OS filesystem.
func WithLocking(lock bool) Option {
	return func(o *options) { o.lock = lock }
}

// WithLockWait sets how long a snapshot waits for another writer to release
// the head lock. Zero fails at once.
func WithLockWait(d time.Duration) Option {
	return func(o *options) { o.lockWait = d }
}

// FindRoot returns the nearest directory at or above start that holds a
// metadata directory.
func FindRoot(fs afero.Fs, start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}
	for {
		info, err := fs.Stat(filepath.Join(dir, MetaDirName))
		if err == nil && info.IsDir() {
			return dir, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", dir, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s: %w", start, ErrNotManaged)
		}
		dir = parent
	}
}

// Init creates the metadata directory in dir and opens the new repository.
func Init(fs afero.Fs, dir string, opts ...Option) (*Repository, error) {
	if root, err := FindRoot(fs, dir); err == nil {
		return nil, fmt.Errorf("%s (root %s): %w", dir, root, ErrAlreadyManaged)
	} else if !errors.Is(err, ErrNotManaged) {
		return nil, err
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	if err := fs.MkdirAll(filepath.Join(root, MetaDirName, "objects"), 0755); err != nil {
		return nil, fmt.Errorf("create metadata dir: %w", err)
	}
	return Open(fs, root, opts...)
}

// Open opens the repository whose metadata directory is in root.
func Open(fs afero.Fs, root string, opts ...Option) (*Repository, error) {
	o := options{level: DefaultCompressionLevel, lockWait: DefaultLockWait}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	root = filepath.Clean(root)
	meta := filepath.Join(root, MetaDirName)
	info, err := fs.Stat(meta)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%s: %w", root, ErrNotManaged)
	}
	if err != nil {
		return nil, fmt.Errorf("stat metadata dir: %w", err)
	}

	store, err := NewObjectStore(fs, filepath.Join(meta, "objects"), o.level, o.log)
	if err != nil {
		return nil, err
	}

	_, isOS := fs.(*afero.OsFs)
	head := NewHeadStore(fs, filepath.Join(meta, "head"), isOS && o.lock, o.log)
	head.lockWait = o.lockWait

	return &Repository{
		fs:      fs,
		root:    root,
		log:     o.log,
		Objects: store,
		Head:    head,
		Trees:   NewTreeBuilder(fs, root, store, o.log),
	}, nil
}

// Root returns the managed root directory.
func (r *Repository) Root() string {
	return r.root
}

// MetaDir returns the path to the metadata directory.
func (r *Repository) MetaDir() string {
	return filepath.Join(r.root, MetaDirName)
}

// Fs returns the filesystem the repository lives on.
func (r *Repository) Fs() afero.Fs {
	return r.fs
}
