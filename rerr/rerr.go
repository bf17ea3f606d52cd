// Package rerr defines the error categories shared across mechanism
// boundaries, grounded on the teacher's core.errors.go convention of a
// sentinel error for errors.Is comparisons plus operation-specific context
// wrapped around it with fmt.Errorf's %w.
package rerr

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is the sentinel behind every boundary input
// validation failure: non-positive permits, a malformed timeout, or a
// configuration value out of its documented range. Callers compare with
// errors.Is(err, rerr.ErrInvalidArgument); InvalidArgument wraps it with
// operation-specific context.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgument formats a message and wraps it around ErrInvalidArgument,
// so the result both reads like a normal error and satisfies
// errors.Is(result, ErrInvalidArgument).
func InvalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidArgument)...)
}
