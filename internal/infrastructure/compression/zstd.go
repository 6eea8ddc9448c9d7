package compression

import (
	"fmt"

	"framewire/internal/core/domain"

	"github.com/klauspost/compress/zstd"
)

// Zstd shares one encoder and decoder; both are safe for concurrent EncodeAll/DecodeAll.
// The decoder refuses frames that would decode past the configured limit.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewZstd(level, maxDecoded int) (*Zstd, error) {
	encLevel := zstd.SpeedFastest
	if level > 0 {
		encLevel = zstd.EncoderLevelFromZstd(level)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(0),
		zstd.WithDecoderMaxMemory(uint64(decodedLimit(maxDecoded))),
	)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

func (z *Zstd) Name() string { return AlgorithmZstd }

func (z *Zstd) Compress(data []byte) ([]byte, error) {
	return z.enc.EncodeAll(data, make([]byte, 0, len(data)/2+16)), nil
}

func (z *Zstd) Decompress(data []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptCompressedData, err)
	}
	return out, nil
}
