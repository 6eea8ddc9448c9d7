package domain

import "time"

type SessionID string

// SessionState is the lifecycle state of a StreamSession.
type SessionState int

const (
	StateIdle SessionState = iota
	StateStreaming
	StateStopped
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Role selects which loops a session runs.
type Role string

const (
	RoleProducer Role = "producer"
	RoleConsumer Role = "consumer"
	RolePeer     Role = "peer"
)

func (r Role) Produces() bool { return r == RoleProducer || r == RolePeer }
func (r Role) Consumes() bool { return r == RoleConsumer || r == RolePeer }

func (r Role) Valid() bool {
	switch r {
	case RoleProducer, RoleConsumer, RolePeer:
		return true
	}
	return false
}

// StopReason records who ended a session.
type StopReason string

const (
	StopLocal        StopReason = "local"
	StopPeer         StopReason = "peer"
	StopSourceEnded  StopReason = "source_ended"
	StopChannelClose StopReason = "channel_closed"
)

// SessionInfo is a point-in-time view of a session.
type SessionInfo struct {
	ID          SessionID      `json:"id"`
	Role        Role           `json:"role"`
	State       string         `json:"state"`
	PeerAddress string         `json:"peer_address,omitempty"`
	StartedAt   time.Time      `json:"started_at,omitempty"`
	Summary     MetricsSummary `json:"summary"`
	Counters    FrameCounters  `json:"counters"`
}
