package cli

import (
	"errors"

	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// userError marks failures caused by the invocation rather than the
// system.
type userError struct{ err error }

func (e userError) Error() string { return e.err.Error() }
func (e userError) Unwrap() error { return e.err }

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	var ue userError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ue),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrUnknownDialect),
		errors.Is(err, types.ErrUnknownPolicy),
		errors.Is(err, types.ErrNotWritable),
		errors.Is(err, types.ErrParseFailed):
		return exitUserError
	default:
		return exitSysError
	}
}
