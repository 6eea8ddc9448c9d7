package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"framewire/internal/core/domain"
	"framewire/internal/core/ports"
	"framewire/pkg/tracing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Pipeline stages reported on per-frame failures.
const (
	StageAcquire    = "acquire"
	StageEncode     = "encode"
	StageCompress   = "compress"
	StageFrame      = "frame"
	StageSend       = "send"
	StageReceive    = "receive"
	StageClassify   = "classify"
	StageDecompress = "decompress"
	StageDecode     = "decode"
)

const reportSaveTimeout = 3 * time.Second

// SessionConfig holds the per-session settings of a StreamSession.
type SessionConfig struct {
	Role    domain.Role
	Quality int

	// LatencyTracking sends a timestamp datagram ahead of every data datagram.
	LatencyTracking bool

	// MaxFPS paces the producer loop; 0 leaves it bound only by the source.
	MaxFPS float64

	// ListenAddress is bound by consuming roles. Producers use an ephemeral port.
	ListenAddress string

	// PeerAddress is used when Start is called without one.
	PeerAddress string

	MaxDatagramSize   int
	ReceiveBufferSize int
}

// SessionDeps are the collaborators a StreamSession drives.
type SessionDeps struct {
	Codec      ports.FrameCodec
	Compressor ports.PayloadCompressor
	Protocol   ports.WireProtocol
	Opener     ports.ChannelOpener

	// Source is required for producing roles, Sink for consuming roles.
	Source ports.FrameSource
	Sink   ports.FrameSink

	// Optional.
	Reports  ports.ReportRepository
	Observer ports.MetricsObserver

	Logger *zap.SugaredLogger
}

// StreamSession runs the producer and/or consumer loop of one streaming session.
// It is created Idle, moves to Streaming on Start and to Stopped on Stop or on
// a peer's control message. Stopped is terminal.
type StreamSession struct {
	id      domain.SessionID
	config  SessionConfig
	deps    SessionDeps
	metrics *MetricsService
	limiter *rate.Limiter
	logger  *zap.SugaredLogger

	mu        sync.Mutex
	state     domain.SessionState
	channel   ports.DatagramChannel
	peer      net.Addr
	startedAt time.Time
	report    *domain.SessionReport
	group     *errgroup.Group
	cancel    context.CancelFunc

	done chan struct{}

	lastSender     atomic.Value // net.Addr
	streamingSeen  atomic.Bool
	framesSent     atomic.Uint64
	framesReceived atomic.Uint64
	framesDropped  atomic.Uint64
}

func NewStreamSession(config SessionConfig, deps SessionDeps) (*StreamSession, error) {
	if !config.Role.Valid() {
		return nil, fmt.Errorf("invalid session role %q", config.Role)
	}
	if deps.Codec == nil || deps.Compressor == nil || deps.Protocol == nil || deps.Opener == nil {
		return nil, errors.New("codec, compressor, protocol and opener are required")
	}
	if config.Role.Produces() && deps.Source == nil {
		return nil, errors.New("a frame source is required for producing sessions")
	}
	if config.Role.Consumes() && deps.Sink == nil {
		return nil, errors.New("a frame sink is required for consuming sessions")
	}
	if config.ReceiveBufferSize <= 0 {
		config.ReceiveBufferSize = 1000000
	}
	if deps.Observer == nil {
		deps.Observer = noopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}

	id := domain.SessionID(uuid.NewString())
	s := &StreamSession{
		id:      id,
		config:  config,
		deps:    deps,
		metrics: NewMetricsService(),
		logger:  deps.Logger.With("session_id", string(id), "role", string(config.Role)),
		state:   domain.StateIdle,
		done:    make(chan struct{}),
	}
	if config.MaxFPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(config.MaxFPS), 1)
	}
	return s, nil
}

func (s *StreamSession) ID() domain.SessionID { return s.id }

func (s *StreamSession) Metrics() *MetricsService { return s.metrics }

func (s *StreamSession) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the session reaches Stopped.
func (s *StreamSession) Done() <-chan struct{} { return s.done }

// LocalAddr returns the bound address of the session's channel, or nil before Start.
func (s *StreamSession) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel == nil {
		return nil
	}
	return s.channel.LocalAddr()
}

// Start opens the channel and launches the loops for the session's role.
// peerAddress may be empty for consumers; it falls back to SessionConfig.PeerAddress.
func (s *StreamSession) Start(ctx context.Context, peerAddress string) error {
	ctx, span := tracing.TraceSession(ctx, "start", string(s.id))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateIdle {
		return domain.ErrAlreadyStarted
	}

	if peerAddress == "" {
		peerAddress = s.config.PeerAddress
	}
	var peer net.Addr
	if peerAddress != "" {
		addr, err := s.deps.Opener.ResolvePeer(peerAddress)
		if err != nil {
			tracing.RecordError(ctx, err)
			return err
		}
		peer = addr
	} else if s.config.Role.Produces() {
		return fmt.Errorf("a peer address is required for role %s", s.config.Role)
	}

	bind := ""
	if s.config.Role.Consumes() {
		bind = s.config.ListenAddress
	}
	channel, err := s.deps.Opener.Open(ctx, bind)
	if err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("failed to open channel: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, groupCtx := errgroup.WithContext(loopCtx)

	s.channel = channel
	s.peer = peer
	s.cancel = cancel
	s.group = group
	s.startedAt = time.Now()
	s.state = domain.StateStreaming

	if s.config.Role.Produces() {
		group.Go(func() error { return s.produceLoop(groupCtx) })
	}
	if s.config.Role.Consumes() {
		group.Go(func() error { return s.consumeLoop(groupCtx) })
	}

	s.deps.Observer.ObserveSessionStarted(s.config.Role)
	s.logger.Infow("session started",
		"local", channel.LocalAddr().String(),
		"peer", peerAddress,
		"codec", s.deps.Codec.Name(),
		"compression", s.deps.Compressor.Name(),
		"protocol", s.deps.Protocol.Name(),
		"quality", s.config.Quality,
	)
	return nil
}

// Stop ends a streaming session, notifies the peer, closes the channel and
// returns the final report. It does not wait for the loops; use Wait for that.
// Calling Stop on a stopped session returns the existing report.
func (s *StreamSession) Stop(ctx context.Context) (*domain.SessionReport, error) {
	return s.stop(ctx, domain.StopLocal, true)
}

// Wait blocks until every loop of the session has returned.
func (s *StreamSession) Wait() error {
	s.mu.Lock()
	group := s.group
	s.mu.Unlock()
	if group == nil {
		return nil
	}
	return group.Wait()
}

// Report returns the final report, or nil while the session has not stopped.
func (s *StreamSession) Report() *domain.SessionReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

func (s *StreamSession) Info() domain.SessionInfo {
	s.mu.Lock()
	info := domain.SessionInfo{
		ID:        s.id,
		Role:      s.config.Role,
		State:     s.state.String(),
		StartedAt: s.startedAt,
	}
	if peer := s.stopTargetLocked(); peer != nil {
		info.PeerAddress = peer.String()
	}
	s.mu.Unlock()

	info.Summary = s.metrics.Summary()
	info.Counters = s.counters()
	return info
}

func (s *StreamSession) counters() domain.FrameCounters {
	return domain.FrameCounters{
		FramesSent:     s.framesSent.Load(),
		FramesReceived: s.framesReceived.Load(),
		FramesDropped:  s.framesDropped.Load(),
	}
}

func (s *StreamSession) stop(ctx context.Context, reason domain.StopReason, notifyPeer bool) (*domain.SessionReport, error) {
	s.mu.Lock()
	switch s.state {
	case domain.StateIdle:
		s.mu.Unlock()
		return nil, domain.ErrNotStarted
	case domain.StateStopped:
		report := s.report
		s.mu.Unlock()
		return report, nil
	}

	s.state = domain.StateStopped
	target := s.stopTargetLocked()

	if notifyPeer && target != nil {
		if err := s.sendMessage(target, domain.ControlMessage()); err != nil {
			s.logger.Warnw("failed to send stop to peer", "peer", target.String(), "error", err)
		}
	}
	if err := s.channel.Close(); err != nil {
		s.logger.Warnw("failed to close channel", "error", err)
	}
	s.cancel()

	report := &domain.SessionReport{
		SessionID: s.id,
		Role:      s.config.Role,
		Reason:    reason,
		StartedAt: s.startedAt,
		StoppedAt: time.Now(),
		Summary:   s.metrics.Summary(),
		Counters:  s.counters(),
	}
	if target != nil {
		report.PeerAddress = target.String()
	}
	s.report = report
	close(s.done)
	s.mu.Unlock()

	s.deps.Observer.ObserveSessionStopped(s.config.Role)
	s.logger.Infow("session stopped",
		"reason", string(reason),
		"duration", report.Duration().String(),
		"frames_sent", report.Counters.FramesSent,
		"frames_received", report.Counters.FramesReceived,
		"frames_dropped", report.Counters.FramesDropped,
		"avg_latency_seconds", report.Summary.AvgLatencySeconds,
		"avg_compressed_bytes", report.Summary.AvgCompressedBytes,
		"avg_raw_bytes", report.Summary.AvgRawBytes,
	)

	if s.deps.Reports != nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportSaveTimeout)
		defer cancel()
		if err := s.deps.Reports.Save(saveCtx, report); err != nil {
			s.logger.Warnw("failed to save session report", "error", err)
		}
	}
	return report, nil
}

// stopTargetLocked picks where a locally initiated stop is sent: the configured
// peer, or for consumers the last address a datagram came from.
func (s *StreamSession) stopTargetLocked() net.Addr {
	if s.peer != nil {
		return s.peer
	}
	if addr, ok := s.lastSender.Load().(net.Addr); ok {
		return addr
	}
	return nil
}

func (s *StreamSession) streaming() bool {
	return s.State() == domain.StateStreaming
}

func (s *StreamSession) produceLoop(ctx context.Context) error {
	for s.streaming() {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		err := s.ProduceFrame(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			s.logger.Infow("frame source exhausted")
			s.stop(ctx, domain.StopSourceEnded, true)
			return nil
		case errors.Is(err, domain.ErrChannelClosed), ctx.Err() != nil:
			return nil
		}
	}
	return nil
}

func (s *StreamSession) consumeLoop(ctx context.Context) error {
	for s.streaming() {
		err := s.ConsumeDatagram(ctx)
		if errors.Is(err, domain.ErrChannelClosed) {
			s.stop(ctx, domain.StopChannelClose, false)
			return nil
		}
	}
	return nil
}

// ProduceFrame runs one producer tick: acquire, encode, compress, tag and send.
// Failures are logged and counted as a dropped frame; the session keeps streaming.
// io.EOF from the source is returned unlogged.
func (s *StreamSession) ProduceFrame(ctx context.Context) error {
	ctx, span := tracing.TraceFrameTick(ctx, "produce", string(s.id), string(s.config.Role))
	defer span.End()

	s.mu.Lock()
	channel, peer, state := s.channel, s.peer, s.state
	s.mu.Unlock()
	if state != domain.StateStreaming {
		return domain.ErrNotStarted
	}

	frame, err := s.deps.Source.NextFrame(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return err
		}
		return s.dropFrame(ctx, StageAcquire, err)
	}

	encoded, err := s.deps.Codec.Encode(frame, s.config.Quality)
	if err != nil {
		return s.dropFrame(ctx, StageEncode, err)
	}

	compressed, err := s.deps.Compressor.Compress(encoded)
	if err != nil {
		return s.dropFrame(ctx, StageCompress, err)
	}

	data, err := s.deps.Protocol.Marshal(domain.DataMessage(compressed))
	if err != nil {
		return s.dropFrame(ctx, StageFrame, err)
	}
	// checked up front so an oversized frame never leaves an orphan timestamp behind
	if s.config.MaxDatagramSize > 0 && len(data) > s.config.MaxDatagramSize {
		return s.dropFrame(ctx, StageSend, fmt.Errorf("%w: %d bytes exceeds %d",
			domain.ErrPayloadTooLarge, len(data), s.config.MaxDatagramSize))
	}

	sentAt := time.Now()
	if s.config.LatencyTracking {
		tag, err := s.deps.Protocol.Marshal(domain.TimestampMessage(unixSeconds(sentAt)))
		if err != nil {
			return s.dropFrame(ctx, StageFrame, err)
		}
		if err := channel.Send(peer, tag); err != nil {
			return s.sendFailed(ctx, err)
		}
	}
	if err := channel.Send(peer, data); err != nil {
		return s.sendFailed(ctx, err)
	}
	sendDuration := time.Since(sentAt)

	sample := domain.SizeSample(len(compressed), len(encoded))
	s.metrics.Record(sample)
	s.framesSent.Add(1)
	s.deps.Observer.ObserveSample(s.config.Role, sample)
	s.deps.Observer.ObserveFrameSent(sendDuration)

	tracing.AddSpanAttributes(ctx,
		tracing.BytesKey.Int(len(compressed)),
		tracing.RawBytesKey.Int(len(encoded)),
	)
	s.logger.Debugw("frame sent", "compressed_bytes", len(compressed), "raw_bytes", len(encoded))
	return nil
}

// ConsumeDatagram runs one consumer tick on the next datagram. A control message
// stops the session; a timestamp yields a latency sample; a data message is
// decompressed, decoded and presented. Bad datagrams are logged and dropped.
func (s *StreamSession) ConsumeDatagram(ctx context.Context) error {
	s.mu.Lock()
	channel, state := s.channel, s.state
	s.mu.Unlock()
	if state != domain.StateStreaming {
		return domain.ErrNotStarted
	}

	raw, from, err := channel.Receive(s.config.ReceiveBufferSize)
	if err != nil {
		if errors.Is(err, domain.ErrChannelClosed) {
			return err
		}
		return s.dropDatagram(ctx, StageReceive, err)
	}

	ctx, span := tracing.TraceFrameTick(ctx, "consume", string(s.id), string(s.config.Role))
	defer span.End()

	if from != nil {
		s.lastSender.Store(from)
	}
	if s.streamingSeen.CompareAndSwap(false, true) {
		s.logger.Infow("video streaming started", "sender", addrString(from))
	}

	msg, err := s.deps.Protocol.Unmarshal(raw)
	if err != nil {
		return s.dropDatagram(ctx, StageClassify, err)
	}
	tracing.AddSpanAttributes(ctx, tracing.KindKey.String(msg.Kind.String()))

	switch msg.Kind {
	case domain.KindControl:
		s.logger.Infow("stop received from peer", "sender", addrString(from))
		s.stop(ctx, domain.StopPeer, false)
		return nil

	case domain.KindTimestamp:
		latency := unixSeconds(time.Now()) - msg.SentAt
		sample := domain.LatencySample(latency)
		s.metrics.Record(sample)
		s.deps.Observer.ObserveSample(s.config.Role, sample)
		tracing.AddSpanAttributes(ctx, tracing.LatencyKey.Float64(latency))
		s.logger.Debugw("latency sample", "latency_seconds", latency)
		return nil

	case domain.KindData:
		decompressed, err := s.deps.Compressor.Decompress(msg.Payload)
		if err != nil {
			return s.dropDatagram(ctx, StageDecompress, err)
		}
		frame, err := s.deps.Codec.Decode(decompressed)
		if err != nil {
			return s.dropDatagram(ctx, StageDecode, err)
		}
		s.deps.Sink.Present(frame)

		sample := domain.SizeSample(len(msg.Payload), len(decompressed))
		s.metrics.Record(sample)
		s.framesReceived.Add(1)
		s.deps.Observer.ObserveSample(s.config.Role, sample)
		s.deps.Observer.ObserveFrameReceived()
		tracing.AddSpanAttributes(ctx,
			tracing.BytesKey.Int(len(msg.Payload)),
			tracing.RawBytesKey.Int(len(decompressed)),
		)
		return nil
	}
	return s.dropDatagram(ctx, StageClassify, fmt.Errorf("%w: kind %d", domain.ErrUnknownMessage, msg.Kind))
}

func (s *StreamSession) sendMessage(peer net.Addr, msg domain.WireMessage) error {
	data, err := s.deps.Protocol.Marshal(msg)
	if err != nil {
		return err
	}
	return s.channel.Send(peer, data)
}

// sendFailed counts a failed send as a dropped frame, unless Stop closed the
// channel underneath it.
func (s *StreamSession) sendFailed(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrChannelClosed) {
		return err
	}
	return s.dropFrame(ctx, StageSend, err)
}

func (s *StreamSession) dropFrame(ctx context.Context, stage string, err error) error {
	s.framesDropped.Add(1)
	s.deps.Observer.ObserveFrameDropped(stage)
	tracing.RecordError(ctx, err)
	tracing.AddSpanAttributes(ctx, tracing.StageKey.String(stage))
	s.logger.Warnw("frame dropped", "stage", stage, "error", err)
	return fmt.Errorf("%s: %w", stage, err)
}

func (s *StreamSession) dropDatagram(ctx context.Context, stage string, err error) error {
	s.framesDropped.Add(1)
	s.deps.Observer.ObserveFrameDropped(stage)
	tracing.RecordError(ctx, err)
	s.logger.Warnw("datagram dropped", "stage", stage, "error", err)
	return fmt.Errorf("%s: %w", stage, err)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

type noopObserver struct{}

func (noopObserver) ObserveSample(domain.Role, domain.MetricSample) {}
func (noopObserver) ObserveFrameSent(time.Duration)                 {}
func (noopObserver) ObserveFrameReceived()                          {}
func (noopObserver) ObserveFrameDropped(string)                     {}
func (noopObserver) ObserveSessionStarted(domain.Role)              {}
func (noopObserver) ObserveSessionStopped(domain.Role)              {}
