package dag

import (
	"errors"
	"fmt"

	"github.com/systemshift/minvcs/internal/object"
)

var (
	// ErrNotFound is returned when no object is stored under a digest.
	ErrNotFound = errors.New("object not found")

	// ErrPathNotFound is returned when a path handed to the tree builder does not exist.
	ErrPathNotFound = errors.New("path does not exist")

	// ErrOutOfScope is returned for paths outside the managed root.
	ErrOutOfScope = errors.New("path is not managed by the repository")

	// ErrUnsupportedPathType is returned for paths that are neither regular files nor directories.
	ErrUnsupportedPathType = errors.New("path is not a regular file or directory")

	// ErrNotDirectory is returned when a snapshot is requested for something other than a directory.
	ErrNotDirectory = errors.New("path is not a directory")

	// ErrNotManaged is returned when no ancestor of a directory holds a metadata directory.
	ErrNotManaged = errors.New("not a managed directory")

	// ErrAlreadyManaged is returned by Init inside an existing repository.
	ErrAlreadyManaged = errors.New("directory is already managed")

	// ErrHeadLocked is returned when another writer holds the head lock for
	// longer than the lock wait.
	ErrHeadLocked = errors.New("head is locked by another writer")

	// ErrInvalidAuthor is returned for authors that cannot be encoded in a snapshot.
	ErrInvalidAuthor = errors.New("author must not contain a newline")
)

// PathError records a tree-building failure and the path that caused it.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// IntegrityError is returned when stored bytes do not hash to the digest
// they were requested by.
type IntegrityError struct {
	Want object.Digest
	Got  object.Digest // zero when the payload could not be decompressed
	Err  error
}

func (e *IntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("object %s is damaged: %v", e.Want, e.Err)
	}
	return fmt.Sprintf("object %s is invalid: content hashes to %s", e.Want, e.Got)
}

func (e *IntegrityError) Unwrap() error { return e.Err }
