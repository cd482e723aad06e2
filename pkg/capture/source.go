package capture

import (
	"fmt"
	"strings"

	"github.com/camtk/stereocam/pkg/frame"
)

// Source is a camera frame producer. Implementations are not safe for
// concurrent Read; a Runner serializes access to one source.
type Source interface {
	// Open acquires the device or connection.
	Open() error
	// Read returns the next frame. ErrClosed is terminal; other
	// errors are transient and the caller may retry.
	Read() (frame.Frame, error)
	// Close releases the device. Safe to call more than once.
	Close() error
	// Name identifies the source in logs.
	Name() string
}

// New builds the source selected by the config.
func New(cfg Config) (Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("capture: invalid config: %s", strings.Join(errs, "; "))
	}
	switch kind := cfg.ResolveKind(); kind {
	case KindDevice:
		return NewDeviceSource(cfg), nil
	case KindV4L2:
		return NewV4L2Source(cfg)
	case KindMJPEG:
		return NewMJPEGSource(cfg), nil
	case KindWS:
		return NewWSSource(cfg), nil
	case KindWebRTC:
		return NewWebRTCSource(cfg), nil
	default:
		return nil, fmt.Errorf("capture: unknown source kind %q", kind)
	}
}
