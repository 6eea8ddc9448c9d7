package media

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"
	"sync"

	"framewire/internal/core/domain"
)

const (
	PatternSolid    = "solid"
	PatternGradient = "gradient"
)

// SyntheticSource generates frames without capture hardware. A Limit of 0
// produces frames forever; otherwise NextFrame returns io.EOF after Limit frames.
type SyntheticSource struct {
	Width   int
	Height  int
	Color   color.RGBA
	Pattern string
	Limit   int

	mu       sync.Mutex
	produced int
}

func NewSyntheticSource(width, height int, c color.RGBA, pattern string, limit int) *SyntheticSource {
	if pattern == "" {
		pattern = PatternSolid
	}
	return &SyntheticSource{Width: width, Height: height, Color: c, Pattern: pattern, Limit: limit}
}

func (s *SyntheticSource) NextFrame(ctx context.Context) (*domain.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.Limit > 0 && s.produced >= s.Limit {
		s.mu.Unlock()
		return nil, io.EOF
	}
	n := s.produced
	s.produced++
	s.mu.Unlock()

	f := domain.NewRawFrame(s.Width, s.Height, domain.LayoutRGBA)
	switch s.Pattern {
	case PatternGradient:
		s.fillGradient(f, n)
	default:
		s.fillSolid(f)
	}
	return f, nil
}

// Produced returns how many frames have been handed out.
func (s *SyntheticSource) Produced() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.produced
}

func (s *SyntheticSource) fillSolid(f *domain.RawFrame) {
	c := s.Color
	for i := 0; i+3 < len(f.Pix); i += 4 {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = c.R, c.G, c.B, 0xff
	}
}

// fillGradient draws a diagonal ramp that scrolls by one pixel per frame.
func (s *SyntheticSource) fillGradient(f *domain.RawFrame, n int) {
	for y := 0; y < f.Height; y++ {
		row := f.Pix[y*f.Stride:]
		for x := 0; x < f.Width; x++ {
			v := byte((x + y + n) * 255 / (f.Width + f.Height))
			p := row[x*4:]
			p[0] = v
			p[1] = byte(int(v) * int(s.Color.G) / 255)
			p[2] = 255 - v
			p[3] = 0xff
		}
	}
}

// ParseHexColor parses "#rrggbb" or "rrggbb".
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: byte(v >> 16), G: byte(v >> 8), B: byte(v), A: 0xff}, nil
}
