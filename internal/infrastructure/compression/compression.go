package compression

import (
	"fmt"

	"framewire/internal/core/ports"
)

const (
	AlgorithmNone = "none"
	AlgorithmZlib = "zlib"
	AlgorithmZstd = "zstd"

	// DefaultMaxDecodedBytes bounds a decompressed payload when no limit is configured.
	DefaultMaxDecodedBytes = 16 << 20
)

// New returns the compressor for algorithm. When enabled is false the identity
// compressor is returned regardless of algorithm. Decompressing more than
// maxDecoded bytes fails with ErrCorruptCompressedData; maxDecoded <= 0 means
// DefaultMaxDecodedBytes.
func New(enabled bool, algorithm string, level, maxDecoded int) (ports.PayloadCompressor, error) {
	if !enabled {
		return NewNoop(), nil
	}
	switch algorithm {
	case AlgorithmZlib, "":
		return NewZlib(level, maxDecoded)
	case AlgorithmZstd:
		return NewZstd(level, maxDecoded)
	case AlgorithmNone:
		return NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown compression algorithm %q", algorithm)
	}
}

func decodedLimit(maxDecoded int) int {
	if maxDecoded <= 0 {
		return DefaultMaxDecodedBytes
	}
	return maxDecoded
}

// Noop passes payloads through unchanged.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (n *Noop) Name() string                           { return AlgorithmNone }
func (n *Noop) Compress(data []byte) ([]byte, error)   { return data, nil }
func (n *Noop) Decompress(data []byte) ([]byte, error) { return data, nil }
