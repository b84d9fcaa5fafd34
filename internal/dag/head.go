package dag

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bobg/flock"
	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/systemshift/minvcs/internal/object"
)

// DefaultLockWait is how long Lock keeps retrying a held head lock.
const DefaultLockWait = 10 * time.Second

// headLockDur is how long a lock file stays valid without a refresh. A
// writer that dies holding the lock blocks others for at most this long.
const headLockDur = 30 * time.Second

// HeadStore holds the single mutable pointer to the latest snapshot.
// The head file contains the digest in hex followed by a newline. It is
// re-read on every access and never cached.
type HeadStore struct {
	fs   afero.Fs
	path string
	log  *zap.Logger

	locking  bool
	flocker  flock.Locker // lock file is <path>.lock
	lockWait time.Duration

	// set while the lock is held
	stop chan struct{}
	done chan struct{}
}

// NewHeadStore creates a HeadStore for the head file at path. When locking
// is set, Lock and Unlock manage the advisory lock file <path>.lock.
// Locking requires fs to be the OS filesystem.
func NewHeadStore(fs afero.Fs, path string, locking bool, log *zap.Logger) *HeadStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &HeadStore{
		fs:       fs,
		path:     path,
		log:      log,
		locking:  locking,
		flocker:  flock.Locker{LockDur: headLockDur},
		lockWait: DefaultLockWait,
	}
}

// Read returns the current head, or object.Zero if none.
func (h *HeadStore) Read() (object.Digest, error) {
	data, err := afero.ReadFile(h.fs, h.path)
	if errors.Is(err, os.ErrNotExist) {
		return object.Zero, nil
	}
	if err != nil {
		return object.Zero, fmt.Errorf("read head: %w", err)
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return object.Zero, nil
	}
	d, err := object.ParseDigest(s)
	if err != nil {
		return object.Zero, fmt.Errorf("decode head: %w", err)
	}
	return d, nil
}

// Write atomically replaces the head with d. On failure the previous head
// is left in place.
func (h *HeadStore) Write(d object.Digest) error {
	if d.IsZero() {
		return errors.New("write head: zero digest")
	}
	if err := SafeWrite(h.fs, h.path, []byte(d.String()+"\n"), 0644); err != nil {
		return fmt.Errorf("write head: %w", err)
	}
	h.log.Info("head updated", zap.Stringer("head", d))
	return nil
}

// Lock takes the advisory head lock. While another writer holds it, Lock
// retries with exponential backoff for up to the lock wait and then fails
// with ErrHeadLocked. The lock is refreshed in the background until Unlock
// so a long snapshot does not let it expire. Lock is a no-op when locking
// is disabled.
func (h *HeadStore) Lock() error {
	if !h.locking {
		return nil
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if h.lockWait > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 10 * time.Millisecond
		eb.MaxInterval = time.Second
		eb.MaxElapsedTime = h.lockWait
		b = eb
	}
	err := backoff.RetryNotify(
		func() error {
			err := h.flocker.Lock(h.path)
			if err != nil && !errors.Is(err, flock.ErrLocked) {
				return backoff.Permanent(err)
			}
			return err
		},
		b,
		func(_ error, wait time.Duration) {
			h.log.Debug("head is locked, retrying", zap.Duration("wait", wait))
		},
	)
	if errors.Is(err, flock.ErrLocked) {
		return fmt.Errorf("lock head (waited %s): %w", h.lockWait, ErrHeadLocked)
	}
	if err != nil {
		return fmt.Errorf("lock head: %w", err)
	}

	h.stop = make(chan struct{})
	h.done = make(chan struct{})
	go h.refresh(h.stop, h.done)
	return nil
}

func (h *HeadStore) refresh(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(h.flocker.LockDur / 3)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if err := h.flocker.Refresh(h.path); err != nil {
				h.log.Warn("refresh head lock", zap.Error(err))
			}
		}
	}
}

// Unlock releases the advisory head lock.
func (h *HeadStore) Unlock() error {
	if !h.locking {
		return nil
	}
	if h.stop != nil {
		close(h.stop)
		<-h.done
		h.stop, h.done = nil, nil
	}
	if err := h.flocker.Unlock(h.path); err != nil {
		return fmt.Errorf("unlock head: %w", err)
	}
	return nil
}
