package domain

import "fmt"

// PixelLayout describes how channels are packed in a RawFrame row.
type PixelLayout string

const (
	LayoutRGBA PixelLayout = "rgba"
	LayoutBGR  PixelLayout = "bgr"
	LayoutGray PixelLayout = "gray"
)

// Channels returns the number of bytes per pixel for the layout, or 0 if unknown.
func (l PixelLayout) Channels() int {
	switch l {
	case LayoutRGBA:
		return 4
	case LayoutBGR:
		return 3
	case LayoutGray:
		return 1
	default:
		return 0
	}
}

// RawFrame is an uncompressed pixel buffer produced by a FrameSource.
type RawFrame struct {
	Width  int
	Height int
	Stride int
	Layout PixelLayout
	Pix    []byte
}

// NewRawFrame allocates a zeroed frame with a tightly packed stride.
func NewRawFrame(width, height int, layout PixelLayout) *RawFrame {
	stride := width * layout.Channels()
	return &RawFrame{
		Width:  width,
		Height: height,
		Stride: stride,
		Layout: layout,
		Pix:    make([]byte, stride*height),
	}
}

// Validate checks that the buffer is large enough for the declared geometry.
func (f *RawFrame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	ch := f.Layout.Channels()
	if ch == 0 {
		return fmt.Errorf("%w: unknown layout %q", ErrInvalidFrame, f.Layout)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: bad dimensions %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if f.Stride < f.Width*ch {
		return fmt.Errorf("%w: stride %d shorter than row %d", ErrInvalidFrame, f.Stride, f.Width*ch)
	}
	if len(f.Pix) < f.Stride*(f.Height-1)+f.Width*ch {
		return fmt.Errorf("%w: buffer of %d bytes too small", ErrInvalidFrame, len(f.Pix))
	}
	return nil
}

// EncodedPayload is one independently decodable compressed frame.
type EncodedPayload []byte
