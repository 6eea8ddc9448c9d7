package codec

import (
	"testing"

	"framewire/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidFrame(w, h int, layout domain.PixelLayout, c [3]byte) *domain.RawFrame {
	f := domain.NewRawFrame(w, h, layout)
	ch := layout.Channels()
	for i := 0; i < w*h; i++ {
		p := f.Pix[i*ch:]
		switch layout {
		case domain.LayoutRGBA:
			p[0], p[1], p[2], p[3] = c[0], c[1], c[2], 0xff
		case domain.LayoutBGR:
			p[0], p[1], p[2] = c[2], c[1], c[0]
		case domain.LayoutGray:
			p[0] = c[0]
		}
	}
	return f
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestJPEGCodec_RoundTripPreservesDimensions(t *testing.T) {
	c := NewJPEGCodec()
	sizes := [][2]int{{1, 1}, {7, 3}, {64, 64}, {640, 480}}
	for _, q := range []int{1, 30, 75, 100} {
		for _, sz := range sizes {
			f := solidFrame(sz[0], sz[1], domain.LayoutRGBA, [3]byte{200, 40, 90})
			payload, err := c.Encode(f, q)
			require.NoError(t, err)

			out, err := c.Decode(payload)
			require.NoError(t, err)
			assert.Equal(t, sz[0], out.Width)
			assert.Equal(t, sz[1], out.Height)
			assert.Equal(t, domain.LayoutRGBA, out.Layout)
		}
	}
}

func TestJPEGCodec_SolidColorWithinTolerance(t *testing.T) {
	c := NewJPEGCodec()
	color := [3]byte{48, 128, 192}

	for _, layout := range []domain.PixelLayout{domain.LayoutRGBA, domain.LayoutBGR} {
		f := solidFrame(64, 64, layout, color)
		payload, err := c.Encode(f, 30)
		require.NoError(t, err)

		out, err := c.Decode(payload)
		require.NoError(t, err)

		var sum [3]int
		for i := 0; i < 64*64; i++ {
			for ch := 0; ch < 3; ch++ {
				sum[ch] += absDiff(out.Pix[i*4+ch], color[ch])
			}
		}
		for ch := 0; ch < 3; ch++ {
			assert.Less(t, float64(sum[ch])/(64*64), 15.0, "layout %s channel %d", layout, ch)
		}
	}
}

func TestJPEGCodec_LowerQualityIsSmaller(t *testing.T) {
	c := NewJPEGCodec()
	f := domain.NewRawFrame(128, 128, domain.LayoutRGBA)
	for i := range f.Pix {
		f.Pix[i] = byte(i * 31)
	}

	low, err := c.Encode(f, 10)
	require.NoError(t, err)
	high, err := c.Encode(f, 95)
	require.NoError(t, err)
	assert.Less(t, len(low), len(high))
}

func TestJPEGCodec_EncodeIsDeterministic(t *testing.T) {
	c := NewJPEGCodec()
	f := solidFrame(32, 32, domain.LayoutGray, [3]byte{99})

	a, err := c.Encode(f, 50)
	require.NoError(t, err)
	b, err := c.Encode(f, 50)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestJPEGCodec_QualityBounds(t *testing.T) {
	c := NewJPEGCodec()
	f := solidFrame(8, 8, domain.LayoutRGBA, [3]byte{1, 2, 3})

	_, err := c.Encode(f, 0)
	assert.NoError(t, err)

	_, err = c.Encode(f, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuality)
	_, err = c.Encode(f, 101)
	assert.ErrorIs(t, err, domain.ErrInvalidQuality)
}

func TestJPEGCodec_InvalidFrame(t *testing.T) {
	c := NewJPEGCodec()
	_, err := c.Encode(&domain.RawFrame{Width: 4, Height: 4, Stride: 16, Layout: domain.LayoutRGBA, Pix: make([]byte, 10)}, 30)
	assert.ErrorIs(t, err, domain.ErrInvalidFrame)

	_, err = c.Encode(nil, 30)
	assert.ErrorIs(t, err, domain.ErrInvalidFrame)
}

func TestJPEGCodec_DecodeMalformed(t *testing.T) {
	c := NewJPEGCodec()
	f := solidFrame(16, 16, domain.LayoutRGBA, [3]byte{10, 20, 30})
	payload, err := c.Encode(f, 30)
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":     {},
		"garbage":   []byte("not an image at all"),
		"truncated": payload[:len(payload)/3],
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode(data)
			assert.ErrorIs(t, err, domain.ErrMalformedPayload)
		})
	}
}
