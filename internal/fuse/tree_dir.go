package fuse

import (
	"context"
	"errors"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/systemshift/minvcs/internal/dag"
	"github.com/systemshift/minvcs/internal/object"
)

// TreeDir is a read-only directory backed by a stored tree. The tree is
// found through resolve on every request, so a TreeDir can follow head.
// A zero digest from resolve is shown as an empty directory.
type TreeDir struct {
	fs.Inode
	cache   *dag.ObjectCache
	resolve func() (object.Digest, error)
	ino     uint64
}

var _ = (fs.NodeLookuper)((*TreeDir)(nil))
var _ = (fs.NodeReaddirer)((*TreeDir)(nil))
var _ = (fs.NodeGetattrer)((*TreeDir)(nil))

func (d *TreeDir) tree() (*object.Tree, error) {
	digest, err := d.resolve()
	if err != nil {
		return nil, err
	}
	if digest.IsZero() {
		return &object.Tree{}, nil
	}
	return d.cache.GetTree(digest)
}

func (d *TreeDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0555
	out.Ino = d.ino
	return fs.OK
}

func (d *TreeDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	tree, err := d.tree()
	if err != nil {
		return nil, toErrno(err)
	}
	entries, err := dirEntries(d.cache, tree)
	if err != nil {
		return nil, toErrno(err)
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (d *TreeDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	tree, err := d.tree()
	if err != nil {
		return nil, toErrno(err)
	}
	entry, ok := tree.Lookup(name)
	if !ok {
		return nil, syscall.ENOENT
	}
	o, err := d.cache.Get(entry.Digest)
	if err != nil {
		return nil, toErrno(err)
	}

	switch obj := o.(type) {
	case *object.Tree:
		digest := entry.Digest
		child := &TreeDir{
			cache:   d.cache,
			resolve: func() (object.Digest, error) { return digest, nil },
			ino:     objectIno(digest, obj.Kind()),
		}
		out.Attr.Mode = syscall.S_IFDIR | 0555
		return d.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR, Ino: child.ino}), fs.OK
	case *object.Blob:
		child := &BlobFile{data: obj.Data, ino: objectIno(entry.Digest, obj.Kind())}
		out.Attr.Mode = syscall.S_IFREG | 0444
		out.Attr.Size = uint64(len(obj.Data))
		return d.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG, Ino: child.ino}), fs.OK
	default:
		// A tree never names a snapshot.
		return nil, syscall.EIO
	}
}

// dirEntries lists tree's children. Only each child's header is read to
// learn its kind.
func dirEntries(cache *dag.ObjectCache, tree *object.Tree) ([]fuse.DirEntry, error) {
	entries := make([]fuse.DirEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		kind, err := cache.Kind(e.Digest)
		if err != nil {
			return nil, err
		}
		mode := uint32(syscall.S_IFREG)
		if kind == object.KindTree {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{
			Name: e.Name,
			Mode: mode,
			Ino:  objectIno(e.Digest, kind),
		})
	}
	return entries, nil
}

// BlobFile is a read-only file holding a blob's content.
type BlobFile struct {
	fs.Inode
	data []byte
	ino  uint64
}

var _ = (fs.NodeGetattrer)((*BlobFile)(nil))
var _ = (fs.NodeReader)((*BlobFile)(nil))
var _ = (fs.NodeOpener)((*BlobFile)(nil))

func (f *BlobFile) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0444
	out.Size = uint64(len(f.data))
	out.Ino = f.ino
	return fs.OK
}

func (f *BlobFile) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_KEEP_CACHE, fs.OK
}

func (f *BlobFile) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	return fuse.ReadResultData(sliceAt(f.data, dest, off)), fs.OK
}

// sliceAt returns the part of data a read of len(dest) bytes at off sees.
func sliceAt(data, dest []byte, off int64) []byte {
	if off >= int64(len(data)) {
		return nil
	}
	end := off + int64(len(dest))
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[off:end]
}

// toErrno maps repository errors onto errno values.
func toErrno(err error) syscall.Errno {
	if errors.Is(err, dag.ErrNotFound) {
		return syscall.ENOENT
	}
	return syscall.EIO
}
