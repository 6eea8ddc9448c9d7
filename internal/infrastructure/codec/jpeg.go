package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	"framewire/internal/core/domain"
	"framewire/internal/core/ports"
)

const (
	MinQuality = 0
	MaxQuality = 100
)

// JPEGCodec encodes frames as baseline JPEG. Every payload is a complete image,
// so any payload decodes without reference to another.
type JPEGCodec struct{}

func NewJPEGCodec() ports.FrameCodec {
	return &JPEGCodec{}
}

func (c *JPEGCodec) Name() string { return "jpeg" }

func (c *JPEGCodec) Encode(frame *domain.RawFrame, quality int) (domain.EncodedPayload, error) {
	if quality < MinQuality || quality > MaxQuality {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidQuality, quality)
	}
	img, err := toImage(frame)
	if err != nil {
		return nil, err
	}

	// image/jpeg clamps to [1,100]; 0 maps to the lowest setting
	q := quality
	if q < 1 {
		q = 1
	}

	var buf bytes.Buffer
	buf.Grow(frame.Width * frame.Height / 4)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *JPEGCodec) Decode(payload domain.EncodedPayload) (*domain.RawFrame, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrMalformedPayload)
	}
	img, err := jpeg.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	return fromImage(img), nil
}

func toImage(frame *domain.RawFrame) (image.Image, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, frame.Width, frame.Height)

	switch frame.Layout {
	case domain.LayoutRGBA:
		return &image.RGBA{Pix: frame.Pix, Stride: frame.Stride, Rect: rect}, nil
	case domain.LayoutGray:
		return &image.Gray{Pix: frame.Pix, Stride: frame.Stride, Rect: rect}, nil
	case domain.LayoutBGR:
		rgba := image.NewRGBA(rect)
		for y := 0; y < frame.Height; y++ {
			src := frame.Pix[y*frame.Stride:]
			dst := rgba.Pix[y*rgba.Stride:]
			for x := 0; x < frame.Width; x++ {
				dst[x*4+0] = src[x*3+2]
				dst[x*4+1] = src[x*3+1]
				dst[x*4+2] = src[x*3+0]
				dst[x*4+3] = 0xff
			}
		}
		return rgba, nil
	}
	return nil, fmt.Errorf("%w: unsupported layout %q", domain.ErrInvalidFrame, frame.Layout)
}

func fromImage(img image.Image) *domain.RawFrame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return &domain.RawFrame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Stride: rgba.Stride,
		Layout: domain.LayoutRGBA,
		Pix:    rgba.Pix,
	}
}

// ToImage exposes a RawFrame as an image.Image for callers that re-encode it,
// such as the HTTP frame preview.
func ToImage(frame *domain.RawFrame) (image.Image, error) {
	return toImage(frame)
}
