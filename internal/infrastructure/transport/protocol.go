package transport

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"framewire/internal/core/domain"
	"framewire/internal/core/ports"
)

const (
	ProtocolTagged = "tagged"
	ProtocolLegacy = "legacy"
)

func NewProtocol(name string) (ports.WireProtocol, error) {
	switch name {
	case ProtocolTagged, "":
		return TaggedProtocol{}, nil
	case ProtocolLegacy:
		return LegacyProtocol{}, nil
	default:
		return nil, fmt.Errorf("unknown wire protocol %q", name)
	}
}

// FormatTimestamp renders Unix seconds as decimal text with microsecond precision.
func FormatTimestamp(unixSeconds float64) []byte {
	return strconv.AppendFloat(nil, unixSeconds, 'f', 6, 64)
}

// ParseTimestamp accepts any finite decimal number, surrounding whitespace allowed.
func ParseTimestamp(data []byte) (float64, bool) {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// TaggedProtocol prefixes every datagram with a one-byte MessageKind. It is not
// wire compatible with LegacyProtocol.
type TaggedProtocol struct{}

func (TaggedProtocol) Name() string { return ProtocolTagged }

func (TaggedProtocol) Marshal(msg domain.WireMessage) ([]byte, error) {
	switch msg.Kind {
	case domain.KindControl:
		return append([]byte{byte(domain.KindControl)}, domain.StopSentinel...), nil
	case domain.KindTimestamp:
		return append([]byte{byte(domain.KindTimestamp)}, FormatTimestamp(msg.SentAt)...), nil
	case domain.KindData:
		out := make([]byte, 1+len(msg.Payload))
		out[0] = byte(domain.KindData)
		copy(out[1:], msg.Payload)
		return out, nil
	default:
		return nil, fmt.Errorf("%w: kind %d", domain.ErrUnknownMessage, msg.Kind)
	}
}

func (TaggedProtocol) Unmarshal(data []byte) (domain.WireMessage, error) {
	if len(data) == 0 {
		return domain.WireMessage{}, fmt.Errorf("%w: empty datagram", domain.ErrUnknownMessage)
	}
	body := data[1:]
	switch domain.MessageKind(data[0]) {
	case domain.KindControl:
		if !bytes.Equal(body, domain.StopSentinel) {
			return domain.WireMessage{}, fmt.Errorf("%w: control body %q", domain.ErrUnknownMessage, body)
		}
		return domain.ControlMessage(), nil
	case domain.KindTimestamp:
		ts, ok := ParseTimestamp(body)
		if !ok {
			return domain.WireMessage{}, fmt.Errorf("%w: bad timestamp %q", domain.ErrMalformedPayload, body)
		}
		return domain.TimestampMessage(ts), nil
	case domain.KindData:
		return domain.DataMessage(body), nil
	default:
		return domain.WireMessage{}, fmt.Errorf("%w: tag 0x%02x", domain.ErrUnknownMessage, data[0])
	}
}

// LegacyProtocol speaks the untagged framing: a bare "stop", a bare decimal
// timestamp, or a bare payload. The receiver tells them apart by whether the
// bytes parse as a number, so a payload that happens to be numeric text is
// indistinguishable from a timestamp. Marshal refuses such payloads.
//
// Only the framing is shared with the older untagged senders. Payloads are the
// encoded image bytes, optionally compressed, with no object serialization layer
// around them, so peers that expect serialized objects cannot decode them.
type LegacyProtocol struct{}

func (LegacyProtocol) Name() string { return ProtocolLegacy }

func (LegacyProtocol) Marshal(msg domain.WireMessage) ([]byte, error) {
	switch msg.Kind {
	case domain.KindControl:
		return append([]byte(nil), domain.StopSentinel...), nil
	case domain.KindTimestamp:
		return FormatTimestamp(msg.SentAt), nil
	case domain.KindData:
		if len(msg.Payload) == 0 || bytes.Equal(msg.Payload, domain.StopSentinel) {
			return nil, fmt.Errorf("%w: payload reads as a control message", domain.ErrAmbiguousMessage)
		}
		if _, ok := ParseTimestamp(msg.Payload); ok {
			return nil, fmt.Errorf("%w: payload reads as a timestamp", domain.ErrAmbiguousMessage)
		}
		return msg.Payload, nil
	default:
		return nil, fmt.Errorf("%w: kind %d", domain.ErrUnknownMessage, msg.Kind)
	}
}

func (LegacyProtocol) Unmarshal(data []byte) (domain.WireMessage, error) {
	// the reference receiver also treats an empty datagram as a stop
	if len(data) == 0 || bytes.Equal(data, domain.StopSentinel) {
		return domain.ControlMessage(), nil
	}
	if ts, ok := ParseTimestamp(data); ok {
		return domain.TimestampMessage(ts), nil
	}
	return domain.DataMessage(data), nil
}
