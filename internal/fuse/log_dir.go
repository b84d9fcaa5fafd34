package fuse

import (
	"bytes"
	"context"
	"fmt"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/systemshift/minvcs/internal/dag"
	"github.com/systemshift/minvcs/internal/object"
)

const maxLogEntries = 64

// LogDir exposes recent snapshots as files in the FUSE tree.
// Layout: log/HEAD (digest), log/0 (newest snapshot), log/1, ...
type LogDir struct {
	fs.Inode
	repo *dag.Repository
}

var _ = (fs.NodeLookuper)((*LogDir)(nil))
var _ = (fs.NodeReaddirer)((*LogDir)(nil))
var _ = (fs.NodeGetattrer)((*LogDir)(nil))

func (d *LogDir) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0555
	out.Ino = stableIno("log")
	return fs.OK
}

func (d *LogDir) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries := []fuse.DirEntry{
		{Name: "HEAD", Mode: syscall.S_IFREG, Ino: stableIno("log/HEAD")},
	}
	history, _ := d.repo.Log(maxLogEntries)
	for i := range history {
		name := fmt.Sprintf("%d", i)
		entries = append(entries, fuse.DirEntry{
			Name: name,
			Mode: syscall.S_IFREG,
			Ino:  stableIno("log/" + name),
		})
	}
	return fs.NewListDirStream(entries), fs.OK
}

func (d *LogDir) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if name == "HEAD" {
		f := &LogHeadFile{repo: d.repo}
		child := d.NewInode(ctx, f, fs.StableAttr{
			Mode: syscall.S_IFREG,
			Ino:  stableIno("log/HEAD"),
		})
		return child, fs.OK
	}

	// Parse index
	var idx int
	if _, err := fmt.Sscanf(name, "%d", &idx); err != nil || idx < 0 || fmt.Sprintf("%d", idx) != name {
		return nil, syscall.ENOENT
	}

	history, _ := d.repo.Log(idx + 1)
	if idx >= len(history) {
		return nil, syscall.ENOENT
	}

	data, err := snapshotText(history[idx])
	if err != nil {
		return nil, syscall.EIO
	}
	f := &LogEntryFile{data: data, name: name}
	child := d.NewInode(ctx, f, fs.StableAttr{
		Mode: syscall.S_IFREG,
		Ino:  stableIno("log/" + name),
	})
	return child, fs.OK
}

// snapshotText renders a history entry the way `minvcs cat` prints it.
func snapshotText(e dag.LogEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := object.Fprint(&buf, e.Digest, e.Snapshot); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LogHeadFile returns the head digest.
type LogHeadFile struct {
	fs.Inode
	repo *dag.Repository
}

var _ = (fs.NodeGetattrer)((*LogHeadFile)(nil))
var _ = (fs.NodeReader)((*LogHeadFile)(nil))
var _ = (fs.NodeOpener)((*LogHeadFile)(nil))

func (f *LogHeadFile) headBytes() []byte {
	return headText(f.repo)
}

func headText(repo *dag.Repository) []byte {
	head, err := repo.Head.Read()
	if err != nil || head.IsZero() {
		return []byte("(none)\n")
	}
	return []byte(head.String() + "\n")
}

func (f *LogHeadFile) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0444
	out.Size = uint64(len(f.headBytes()))
	out.Ino = stableIno("log/HEAD")
	return fs.OK
}

func (f *LogHeadFile) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_DIRECT_IO, fs.OK
}

func (f *LogHeadFile) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	return fuse.ReadResultData(sliceAt(f.headBytes(), dest, off)), fs.OK
}

// LogEntryFile returns the text rendering of a single snapshot.
type LogEntryFile struct {
	fs.Inode
	data []byte
	name string
}

var _ = (fs.NodeGetattrer)((*LogEntryFile)(nil))
var _ = (fs.NodeReader)((*LogEntryFile)(nil))
var _ = (fs.NodeOpener)((*LogEntryFile)(nil))

func (f *LogEntryFile) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0444
	out.Size = uint64(len(f.data))
	out.Ino = stableIno("log/" + f.name)
	return fs.OK
}

func (f *LogEntryFile) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_DIRECT_IO, fs.OK
}

func (f *LogEntryFile) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	return fuse.ReadResultData(sliceAt(f.data, dest, off)), fs.OK
}
