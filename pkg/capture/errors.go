package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed indicates a read from a closed source.
	ErrClosed = errors.New("capture: source closed")

	// ErrNoFrame indicates the source produced no frame in time.
	ErrNoFrame = errors.New("capture: no frame available")

	// ErrNotOpened indicates a read before Open.
	ErrNotOpened = errors.New("capture: source not opened")

	// ErrUnsupported indicates a source kind the platform cannot
	// provide.
	ErrUnsupported = errors.New("capture: source not supported on this platform")
)

// OpenError wraps a device open or negotiation failure.
type OpenError struct {
	Device string
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("capture: open %s: %v", e.Device, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}
