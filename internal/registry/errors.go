package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedLine indicates a line matching none of the registry shapes.
	ErrMalformedLine = errors.New("malformed registry line")

	// ErrOrphanDevice indicates a device line seen before any vendor line.
	ErrOrphanDevice = errors.New("device listed before any vendor")
)

// LineError ties a parse failure to the offending input line.
type LineError struct {
	Line int    // 1-based line number, 0 when unknown
	Text string // raw line content
	Err  error
}

func (e *LineError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Text)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
