package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/systemshift/minvcs/internal/dag"
	"github.com/systemshift/minvcs/internal/object"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1 // I/O and anything unclassified
	exitUsage     = 2 // bad arguments, not a managed directory
	exitNotFound  = 3
	exitIntegrity = 4 // stored object damaged or malformed
	exitPath      = 5 // path missing, out of scope or unsupported
	exitLocked    = 6 // another writer holds the head lock
)

func main() {
	a := &app{fs: afero.NewOsFs()}
	cmd := newRootCmd(a)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "minvcs: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// usageError marks errors caused by how the command was invoked.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var (
		ue usageError
		ie *dag.IntegrityError
		ce *object.CorruptError
		pe *dag.PathError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ue),
		errors.Is(err, dag.ErrNotManaged),
		errors.Is(err, dag.ErrAlreadyManaged),
		errors.Is(err, dag.ErrInvalidAuthor):
		return exitUsage
	case errors.Is(err, dag.ErrNotFound):
		return exitNotFound
	case errors.As(err, &ie), errors.As(err, &ce):
		return exitIntegrity
	case errors.As(err, &pe):
		return exitPath
	case errors.Is(err, dag.ErrHeadLocked):
		return exitLocked
	default:
		return exitFailure
	}
}
