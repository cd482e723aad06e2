// Package frame defines the video frame type shared by capture sources,
// the viewer, and the streaming server.
package frame

import (
	"time"
)

// Format identifies the pixel layout of a Frame's Data.
type Format int

const (
	// FormatGray is 8-bit grayscale, Width*Height bytes.
	FormatGray Format = iota
	// FormatRGBA is 8-bit RGBA, Width*Height*4 bytes.
	FormatRGBA
	// FormatJPEG is a JPEG-compressed image.
	FormatJPEG
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatGray:
		return "gray"
	case FormatRGBA:
		return "rgba"
	case FormatJPEG:
		return "jpeg"
	}
	return "unknown"
}

// Frame is a single captured image.
//
// The capture goroutine owns Data until the frame is handed to a
// consumer; consumers must treat Data as read-only. Use Clone when a
// consumer needs to keep the pixels past the handoff.
type Frame struct {
	// Data holds the pixel or compressed bytes per Format.
	Data []byte

	// Width and Height in pixels. Zero for JPEG frames whose
	// dimensions have not been decoded.
	Width  int
	Height int

	// Format describes the layout of Data.
	Format Format

	// Seq is a monotonic capture counter assigned by the source.
	Seq uint64

	// Timestamp is the capture time, not the processing time.
	Timestamp time.Time
}

// Empty reports whether the frame carries no data.
func (f Frame) Empty() bool {
	return len(f.Data) == 0
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	out := f
	out.Data = make([]byte, len(f.Data))
	copy(out.Data, f.Data)
	return out
}

// FromJPEG wraps already-compressed JPEG bytes as a frame. The bytes
// are not copied; the caller must not modify them afterwards.
func FromJPEG(data []byte, seq uint64) Frame {
	return Frame{
		Data:      data,
		Format:    FormatJPEG,
		Seq:       seq,
		Timestamp: time.Now(),
	}
}

// NewGray builds a grayscale frame from raw pixel bytes.
func NewGray(data []byte, width, height int, seq uint64) Frame {
	return Frame{
		Data:      data,
		Width:     width,
		Height:    height,
		Format:    FormatGray,
		Seq:       seq,
		Timestamp: time.Now(),
	}
}

// NewRGBA builds an RGBA frame from raw pixel bytes.
func NewRGBA(data []byte, width, height int, seq uint64) Frame {
	return Frame{
		Data:      data,
		Width:     width,
		Height:    height,
		Format:    FormatRGBA,
		Seq:       seq,
		Timestamp: time.Now(),
	}
}
