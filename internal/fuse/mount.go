package fuse

import (
	"fmt"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	gofuse "github.com/hanwen/go-fuse/v2/fuse"

	"github.com/systemshift/minvcs/internal/dag"
)

// Options configures MountFS.
type Options struct {
	// CacheSize is the number of decoded objects kept in memory.
	CacheSize int
	// Debug logs every FUSE request.
	Debug bool
}

// MountFS mounts a read-only view of repo at mountpoint.
// Returns the server (call server.Wait() to block, server.Unmount() to stop).
func MountFS(mountpoint string, repo *dag.Repository, opts Options) (*gofuse.Server, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	cache, err := dag.NewObjectCache(repo.Objects, opts.CacheSize)
	if err != nil {
		return nil, err
	}
	root := &RootNode{repo: repo, cache: cache}

	// head/ moves, so the kernel must not hold on to its entries.
	timeout := time.Duration(0)
	fsOpts := &fs.Options{
		MountOptions: gofuse.MountOptions{
			FsName:        "minvcs",
			Name:          "minvcs",
			DisableXAttrs: true,
			Debug:         opts.Debug,
		},
		EntryTimeout: &timeout,
		AttrTimeout:  &timeout,
	}

	server, err := fs.Mount(mountpoint, root, fsOpts)
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", mountpoint, err)
	}
	return server, nil
}
