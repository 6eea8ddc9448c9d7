package domain

import "time"

// MetricSample is one observation for a processed frame or timestamp.
// Nil fields are not counted toward the corresponding average.
type MetricSample struct {
	LatencySeconds  *float64
	CompressedBytes *int
	RawEncodedBytes *int
}

func LatencySample(seconds float64) MetricSample {
	return MetricSample{LatencySeconds: &seconds}
}

func SizeSample(compressed, rawEncoded int) MetricSample {
	return MetricSample{CompressedBytes: &compressed, RawEncodedBytes: &rawEncoded}
}

// MetricsSummary holds running averages. Each is 0 when no sample carried the field.
type MetricsSummary struct {
	AvgLatencySeconds  float64 `json:"avg_latency_seconds"`
	AvgCompressedBytes float64 `json:"avg_compressed_bytes"`
	AvgRawBytes        float64 `json:"avg_raw_bytes"`
	LatencySamples     int     `json:"latency_samples"`
	SizeSamples        int     `json:"size_samples"`
}

// FrameCounters tracks per-session frame throughput and drops.
type FrameCounters struct {
	FramesSent     uint64 `json:"frames_sent"`
	FramesReceived uint64 `json:"frames_received"`
	FramesDropped  uint64 `json:"frames_dropped"`
}

// SessionReport is the final record produced when a session stops.
type SessionReport struct {
	SessionID   SessionID      `json:"session_id"`
	Role        Role           `json:"role"`
	PeerAddress string         `json:"peer_address,omitempty"`
	Reason      StopReason     `json:"reason"`
	StartedAt   time.Time      `json:"started_at"`
	StoppedAt   time.Time      `json:"stopped_at"`
	Summary     MetricsSummary `json:"summary"`
	Counters    FrameCounters  `json:"counters"`
}

func (r *SessionReport) Duration() time.Duration {
	return r.StoppedAt.Sub(r.StartedAt)
}
