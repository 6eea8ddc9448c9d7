package compression

import (
	"bytes"
	"fmt"
	"io"

	"framewire/internal/core/domain"

	"github.com/klauspost/compress/zlib"
)

// Zlib produces RFC 1950 streams, readable by any standard zlib implementation.
type Zlib struct {
	level      int
	maxDecoded int
}

func NewZlib(level, maxDecoded int) (*Zlib, error) {
	if level == 0 {
		level = zlib.DefaultCompression
	}
	if level < zlib.HuffmanOnly || level > zlib.BestCompression {
		return nil, fmt.Errorf("zlib level %d out of range", level)
	}
	return &Zlib{level: level, maxDecoded: decodedLimit(maxDecoded)}, nil
}

func (z *Zlib) Name() string { return AlgorithmZlib }

func (z *Zlib) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, z.level)
	if err != nil {
		return nil, fmt.Errorf("zlib writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

func (z *Zlib) Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptCompressedData, err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, int64(z.maxDecoded)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptCompressedData, err)
	}
	if len(out) > z.maxDecoded {
		return nil, fmt.Errorf("%w: decompressed size exceeds %d bytes", domain.ErrCorruptCompressedData, z.maxDecoded)
	}
	return out, nil
}
