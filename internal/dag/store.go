package dag

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zlib"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/systemshift/minvcs/internal/object"
)

// DefaultCompressionLevel favors speed over ratio.
const DefaultCompressionLevel = zlib.BestSpeed

// ObjectStore manages digest-addressed immutable objects on disk.
// Each object is the zlib-compressed canonical encoding, stored at
// <dir>/<first two hex chars>/<remaining hex chars>.
type ObjectStore struct {
	fs    afero.Fs
	dir   string // path to objects/ directory
	level int
	log   *zap.Logger
}

// NewObjectStore creates an ObjectStore at the given directory.
func NewObjectStore(fs afero.Fs, dir string, level int, log *zap.Logger) (*ObjectStore, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create objects dir: %w", err)
	}
	if _, err := zlib.NewWriterLevel(io.Discard, level); err != nil {
		return nil, fmt.Errorf("compression level: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ObjectStore{fs: fs, dir: dir, level: level, log: log}, nil
}

// Path returns the file an object with digest d is stored in.
func (s *ObjectStore) Path(d object.Digest) string {
	h := d.String()
	return filepath.Join(s.dir, h[:2], h[2:])
}

// Put encodes o and writes it to the store, returning its digest.
// If the object already exists, this is a no-op.
func (s *ObjectStore) Put(o object.Object) (object.Digest, error) {
	encoded := object.Encode(o)
	d := object.Sum(encoded)
	if err := s.PutEncoded(d, encoded); err != nil {
		return object.Zero, err
	}
	return d, nil
}

// PutEncoded stores an already-encoded object under d.
// The caller is responsible for d being the digest of encoded.
func (s *ObjectStore) PutEncoded(d object.Digest, encoded []byte) error {
	path := s.Path(d)
	if _, err := s.fs.Stat(path); err == nil {
		return nil // already exists
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, s.level)
	if err != nil {
		return fmt.Errorf("create compressor: %w", err)
	}
	if _, err := zw.Write(encoded); err != nil {
		return fmt.Errorf("compress object %s: %w", d, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress object %s: %w", d, err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create shard dir: %w", err)
	}
	if err := SafeWrite(s.fs, path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write object %s: %w", d, err)
	}
	s.log.Debug("stored object", zap.Stringer("digest", d), zap.Int("size", len(encoded)))
	return nil
}

// GetRaw reads an object by digest and returns its verified canonical encoding.
func (s *ObjectStore) GetRaw(d object.Digest) ([]byte, error) {
	compressed, err := afero.ReadFile(s.fs, s.Path(d))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("object %s: %w", d, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", d, err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, &IntegrityError{Want: d, Err: err}
	}
	encoded, err := io.ReadAll(zr)
	if err != nil {
		return nil, &IntegrityError{Want: d, Err: err}
	}
	if err := zr.Close(); err != nil {
		return nil, &IntegrityError{Want: d, Err: err}
	}

	if got := object.Sum(encoded); got != d {
		return nil, &IntegrityError{Want: d, Got: got}
	}
	return encoded, nil
}

// maxHeaderLen bounds the bytes Kind inflates: the longest kind name, a
// space, a decimal length and the NUL.
const maxHeaderLen = 32

// Kind reports the kind of the object stored under d by inflating only its
// header. The content is not verified.
func (s *ObjectStore) Kind(d object.Digest) (object.Kind, error) {
	f, err := s.fs.Open(s.Path(d))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("object %s: %w", d, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read object %s: %w", d, err)
	}
	defer f.Close()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return "", &IntegrityError{Want: d, Err: err}
	}
	defer zr.Close()
	header, err := bufio.NewReader(io.LimitReader(zr, maxHeaderLen)).ReadBytes(0)
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("decode object %s: %w", d, &object.CorruptError{Reason: object.ReasonMissingSeparator})
	}
	if err != nil {
		return "", &IntegrityError{Want: d, Err: fmt.Errorf("read header: %w", err)}
	}
	kind, _, err := object.ParseHeader(header[:len(header)-1])
	if err != nil {
		return "", fmt.Errorf("decode object %s: %w", d, err)
	}
	return kind, nil
}

// Get reads and decodes an object by digest.
func (s *ObjectStore) Get(d object.Digest) (object.Object, error) {
	encoded, err := s.GetRaw(d)
	if err != nil {
		return nil, err
	}
	o, err := object.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode object %s: %w", d, err)
	}
	return o, nil
}

// Has checks if an object exists.
func (s *ObjectStore) Has(d object.Digest) bool {
	_, err := s.fs.Stat(s.Path(d))
	return err == nil
}

// GetSnapshot reads d and requires it to be a snapshot.
func (s *ObjectStore) GetSnapshot(d object.Digest) (*object.Snapshot, error) {
	o, err := s.Get(d)
	if err != nil {
		return nil, err
	}
	snap, ok := o.(*object.Snapshot)
	if !ok {
		return nil, fmt.Errorf("object %s is a %s, not a snapshot", d, o.Kind())
	}
	return snap, nil
}

// GetTree reads d and requires it to be a tree.
func (s *ObjectStore) GetTree(d object.Digest) (*object.Tree, error) {
	o, err := s.Get(d)
	if err != nil {
		return nil, err
	}
	tree, ok := o.(*object.Tree)
	if !ok {
		return nil, fmt.Errorf("object %s is a %s, not a directory", d, o.Kind())
	}
	return tree, nil
}
