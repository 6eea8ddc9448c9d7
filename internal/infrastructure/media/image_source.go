package media

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"framewire/internal/core/domain"
)

// ImageDirSource replays the PNG and JPEG files of a directory in name order.
type ImageDirSource struct {
	files []string
	loop  bool

	mu   sync.Mutex
	next int
}

func NewImageDirSource(dir string, loop bool) (*ImageDirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no png or jpeg files in %s", dir)
	}
	sort.Strings(files)

	return &ImageDirSource{files: files, loop: loop}, nil
}

func (s *ImageDirSource) NextFrame(ctx context.Context) (*domain.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.next >= len(s.files) {
		if !s.loop {
			s.mu.Unlock()
			return nil, io.EOF
		}
		s.next = 0
	}
	path := s.files[s.next]
	s.next++
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	return &domain.RawFrame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Stride: rgba.Stride,
		Layout: domain.LayoutRGBA,
		Pix:    rgba.Pix,
	}, nil
}

func (s *ImageDirSource) Close() error { return nil }
