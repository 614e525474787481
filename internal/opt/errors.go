package opt

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for malformed optimizer input
// (empty or zero vectors, non-positive steps, missing objective or source).
// Use errors.Is(err, ErrInvalidArgument) to check for it.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
