package dag

import (
	"fmt"

	"github.com/systemshift/minvcs/internal/object"
)

// LogEntry is one snapshot in the history.
type LogEntry struct {
	Digest   object.Digest
	Snapshot *object.Snapshot
}

// Log walks the first-parent chain from head, returning up to n snapshots
// (newest first). n <= 0 means no limit.
func (r *Repository) Log(n int) ([]LogEntry, error) {
	head, err := r.Head.Read()
	if err != nil || head.IsZero() {
		return nil, err
	}
	return History(r.Objects, head, n)
}

// History walks the first-parent chain from start.
func History(store *ObjectStore, start object.Digest, n int) ([]LogEntry, error) {
	var entries []LogEntry
	current := start
	for !current.IsZero() && (n <= 0 || len(entries) < n) {
		snap, err := store.GetSnapshot(current)
		if err != nil {
			return entries, fmt.Errorf("history at %s: %w", current, err)
		}
		entries = append(entries, LogEntry{Digest: current, Snapshot: snap})

		// Follow first parent
		if len(snap.Parents) == 0 {
			break
		}
		current = snap.Parents[0]
	}
	return entries, nil
}
