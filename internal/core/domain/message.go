package domain

// MessageKind distinguishes the datagrams of the stream protocol.
type MessageKind byte

const (
	KindControl   MessageKind = 0x01
	KindTimestamp MessageKind = 0x02
	KindData      MessageKind = 0x03
)

func (k MessageKind) String() string {
	switch k {
	case KindControl:
		return "control"
	case KindTimestamp:
		return "timestamp"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// StopSentinel is the body of a ControlMessage.
var StopSentinel = []byte("stop")

// WireMessage is one decoded datagram.
type WireMessage struct {
	Kind MessageKind

	// SentAt is the producer's send time in Unix seconds, set for KindTimestamp.
	SentAt float64

	// Payload is set for KindData.
	Payload []byte
}

func ControlMessage() WireMessage {
	return WireMessage{Kind: KindControl}
}

func TimestampMessage(unixSeconds float64) WireMessage {
	return WireMessage{Kind: KindTimestamp, SentAt: unixSeconds}
}

func DataMessage(payload []byte) WireMessage {
	return WireMessage{Kind: KindData, Payload: payload}
}
