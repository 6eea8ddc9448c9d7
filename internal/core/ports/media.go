package ports

import (
	"context"

	"framewire/internal/core/domain"
)

// FrameSource produces raw frames on demand. It returns io.EOF when exhausted.
type FrameSource interface {
	NextFrame(ctx context.Context) (*domain.RawFrame, error)
}

// FrameSink consumes decoded frames. Dropping under backpressure is allowed.
type FrameSink interface {
	Present(frame *domain.RawFrame)
}

// FrameCodec is a lossy, stateless image codec.
type FrameCodec interface {
	Encode(frame *domain.RawFrame, quality int) (domain.EncodedPayload, error)
	Decode(payload domain.EncodedPayload) (*domain.RawFrame, error)
	Name() string
}

// PayloadCompressor is an optional lossless stage after encoding.
type PayloadCompressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Name() string
}
