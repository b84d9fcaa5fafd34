package fuse

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/systemshift/minvcs/internal/dag"
	"github.com/systemshift/minvcs/internal/object"
)

// RootNode is the mountpoint directory. Contains "head/", "snapshots/", and "log/".
type RootNode struct {
	fs.Inode
	repo  *dag.Repository
	cache *dag.ObjectCache
}

var _ = (fs.NodeOnAdder)((*RootNode)(nil))
var _ = (fs.NodeGetattrer)((*RootNode)(nil))

func (r *RootNode) OnAdd(ctx context.Context) {
	headDir := &TreeDir{cache: r.cache, resolve: r.headTree, ino: stableIno("head")}
	headInode := r.NewPersistentInode(ctx, headDir, fs.StableAttr{
		Mode: syscall.S_IFDIR,
		Ino:  stableIno("head"),
	})
	r.AddChild("head", headInode, true)

	snapsDir := &SnapshotsDir{repo: r.repo, cache: r.cache}
	snapsInode := r.NewPersistentInode(ctx, snapsDir, fs.StableAttr{
		Mode: syscall.S_IFDIR,
		Ino:  stableIno("snapshots"),
	})
	r.AddChild("snapshots", snapsInode, true)

	logDir := &LogDir{repo: r.repo}
	logInode := r.NewPersistentInode(ctx, logDir, fs.StableAttr{
		Mode: syscall.S_IFDIR,
		Ino:  stableIno("log"),
	})
	r.AddChild("log", logInode, true)
}

func (r *RootNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0555
	out.Ino = stableIno("/")
	return fs.OK
}

// headTree resolves the tree of the current head snapshot. Head is re-read
// on every call; zero means there is no snapshot yet.
func (r *RootNode) headTree() (object.Digest, error) {
	head, err := r.repo.Head.Read()
	if err != nil || head.IsZero() {
		return object.Zero, err
	}
	snap, err := r.cache.GetSnapshot(head)
	if err != nil {
		return object.Zero, err
	}
	return snap.Tree, nil
}

// SnapshotsDir lists the snapshots along the head history. Any stored
// snapshot can be looked up by digest, hex or CID.
type SnapshotsDir struct {
	fs.Inode
	repo  *dag.Repository
	cache *dag.ObjectCache
}

var _ = (fs.NodeLookuper)((*SnapshotsDir)(nil))
var _ = (fs.NodeReaddirer)((*SnapshotsDir)(nil))
var _ = (fs.NodeGetattrer)((*SnapshotsDir)(nil))

func (d *SnapshotsDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0555
	out.Ino = stableIno("snapshots")
	return fs.OK
}

func (d *SnapshotsDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	history, err := d.repo.Log(maxLogEntries)
	if err != nil && len(history) == 0 {
		return nil, toErrno(err)
	}
	entries := make([]fuse.DirEntry, len(history))
	for i, e := range history {
		entries[i] = fuse.DirEntry{
			Name: e.Digest.String(),
			Mode: syscall.S_IFDIR,
			Ino:  snapshotIno(e.Digest),
		}
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (d *SnapshotsDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	digest, err := object.ParseDigest(name)
	if err != nil {
		return nil, syscall.ENOENT
	}
	snap, err := d.cache.GetSnapshot(digest)
	if err != nil {
		return nil, toErrno(err)
	}
	tree := snap.Tree
	dir := &TreeDir{
		cache:   d.cache,
		resolve: func() (object.Digest, error) { return tree, nil },
		ino:     snapshotIno(digest),
	}
	child := d.NewInode(ctx, dir, fs.StableAttr{
		Mode: syscall.S_IFDIR,
		Ino:  snapshotIno(digest),
	})
	return child, fs.OK
}
