package primary

import (
	"errors"
	"fmt"
)

// ErrNoGenerator is wrapped by the fatal error raised when primaries are
// requested with no active generator.
var ErrNoGenerator = errors.New("no active generator")

// CodeNoGenerator identifies the missing-generator failure.
const CodeNoGenerator = "PRIMARY_NO_GENERATOR"

const originGeneratePrimaries = "primary.Action.GeneratePrimaries"

// FatalError is a non-recoverable failure. The event loop must abort the run
// when it sees one and must not retry the event.
type FatalError struct {
	Origin  string
	Code    string
	Message string
	Err     error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Origin, e.Code, e.Message)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
