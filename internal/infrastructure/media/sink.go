package media

import (
	"sync"
	"sync/atomic"

	"framewire/internal/core/domain"
	"framewire/internal/core/ports"
)

// LatestFrameSink keeps only the newest frame. A frame that is overwritten before
// anyone took it counts as dropped.
type LatestFrameSink struct {
	mu       sync.Mutex
	latest   *domain.RawFrame
	consumed bool

	presented atomic.Uint64
	dropped   atomic.Uint64
}

func NewLatestFrameSink() *LatestFrameSink {
	return &LatestFrameSink{consumed: true}
}

func (s *LatestFrameSink) Present(frame *domain.RawFrame) {
	s.mu.Lock()
	if !s.consumed {
		s.dropped.Add(1)
	}
	s.latest = frame
	s.consumed = false
	s.mu.Unlock()

	s.presented.Add(1)
}

// Latest returns the newest frame, or nil if none arrived yet.
func (s *LatestFrameSink) Latest() *domain.RawFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumed = true
	return s.latest
}

func (s *LatestFrameSink) Presented() uint64 { return s.presented.Load() }
func (s *LatestFrameSink) Dropped() uint64   { return s.dropped.Load() }

// FuncSink adapts a function to ports.FrameSink.
type FuncSink func(frame *domain.RawFrame)

func (f FuncSink) Present(frame *domain.RawFrame) { f(frame) }

// MultiSink fans one decoded frame out to several local sinks.
type MultiSink []ports.FrameSink

func (m MultiSink) Present(frame *domain.RawFrame) {
	for _, s := range m {
		s.Present(frame)
	}
}
