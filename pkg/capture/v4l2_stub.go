//go:build !linux

package capture

// NewV4L2Source returns an error on platforms without Video4Linux.
func NewV4L2Source(cfg Config) (Source, error) {
	return nil, ErrUnsupported
}
