package transport

import (
	"testing"

	"framewire/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaggedProtocol_RoundTrip(t *testing.T) {
	p := TaggedProtocol{}

	msgs := []domain.WireMessage{
		domain.ControlMessage(),
		domain.TimestampMessage(1700000000.123456),
		domain.DataMessage([]byte{0xff, 0xd8, 0x01}),
		// numeric payloads are unambiguous once tagged
		domain.DataMessage([]byte("1700000000.5")),
		domain.DataMessage([]byte("stop")),
	}
	for _, m := range msgs {
		raw, err := p.Marshal(m)
		require.NoError(t, err)
		assert.Equal(t, byte(m.Kind), raw[0])

		got, err := p.Unmarshal(raw)
		require.NoError(t, err)
		assert.Equal(t, m.Kind, got.Kind)
		switch m.Kind {
		case domain.KindTimestamp:
			assert.InDelta(t, m.SentAt, got.SentAt, 1e-6)
		case domain.KindData:
			assert.Equal(t, m.Payload, got.Payload)
		}
	}
}

func TestTaggedProtocol_RejectsUnknown(t *testing.T) {
	p := TaggedProtocol{}

	_, err := p.Unmarshal(nil)
	assert.ErrorIs(t, err, domain.ErrUnknownMessage)

	_, err = p.Unmarshal([]byte{0x7f, 1, 2})
	assert.ErrorIs(t, err, domain.ErrUnknownMessage)

	// an untagged legacy stop is not a control message here
	_, err = p.Unmarshal([]byte("stop"))
	assert.ErrorIs(t, err, domain.ErrUnknownMessage)

	_, err = p.Unmarshal(append([]byte{byte(domain.KindTimestamp)}, "soon"...))
	assert.ErrorIs(t, err, domain.ErrMalformedPayload)
}

func TestTaggedProtocol_ControlBodyMustBeStop(t *testing.T) {
	p := TaggedProtocol{}

	for _, body := range []string{"garbage", "", "stopp", "STOP"} {
		_, err := p.Unmarshal(append([]byte{byte(domain.KindControl)}, body...))
		assert.ErrorIs(t, err, domain.ErrUnknownMessage, "body %q", body)
	}

	m, err := p.Unmarshal(append([]byte{byte(domain.KindControl)}, domain.StopSentinel...))
	require.NoError(t, err)
	assert.Equal(t, domain.KindControl, m.Kind)
}

func TestLegacyProtocol_WireFormat(t *testing.T) {
	p := LegacyProtocol{}

	raw, err := p.Marshal(domain.ControlMessage())
	require.NoError(t, err)
	assert.Equal(t, []byte("stop"), raw)

	raw, err = p.Marshal(domain.TimestampMessage(12.5))
	require.NoError(t, err)
	assert.Equal(t, "12.500000", string(raw))

	raw, err = p.Marshal(domain.DataMessage([]byte{0x78, 0x9c, 0x01}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x78, 0x9c, 0x01}, raw)
}

func TestLegacyProtocol_Classification(t *testing.T) {
	p := LegacyProtocol{}

	m, err := p.Unmarshal([]byte("stop"))
	require.NoError(t, err)
	assert.Equal(t, domain.KindControl, m.Kind)

	m, err = p.Unmarshal(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.KindControl, m.Kind)

	m, err = p.Unmarshal([]byte("1700000000.25"))
	require.NoError(t, err)
	assert.Equal(t, domain.KindTimestamp, m.Kind)
	assert.Equal(t, 1700000000.25, m.SentAt)

	m, err = p.Unmarshal([]byte{0x78, 0x9c, 0xab})
	require.NoError(t, err)
	assert.Equal(t, domain.KindData, m.Kind)
}

// The untagged scheme cannot tell a numeric payload from a timestamp. A foreign
// sender emitting such a payload has it read as a timestamp; this implementation
// refuses to send one instead.
func TestLegacyProtocol_AmbiguousPayload(t *testing.T) {
	p := LegacyProtocol{}
	numeric := []byte("42")

	m, err := p.Unmarshal(numeric)
	require.NoError(t, err)
	assert.Equal(t, domain.KindTimestamp, m.Kind, "numeric data is classified as a timestamp")

	_, err = p.Marshal(domain.DataMessage(numeric))
	assert.ErrorIs(t, err, domain.ErrAmbiguousMessage)

	_, err = p.Marshal(domain.DataMessage([]byte("stop")))
	assert.ErrorIs(t, err, domain.ErrAmbiguousMessage)

	_, err = p.Marshal(domain.DataMessage(nil))
	assert.ErrorIs(t, err, domain.ErrAmbiguousMessage)
}

func TestParseTimestamp(t *testing.T) {
	v, ok := ParseTimestamp([]byte(" 1.5\n"))
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	for _, bad := range []string{"", "NaN", "inf", "1.2.3", "abc"} {
		_, ok := ParseTimestamp([]byte(bad))
		assert.False(t, ok, bad)
	}
}

func TestNewProtocol(t *testing.T) {
	p, err := NewProtocol("")
	require.NoError(t, err)
	assert.Equal(t, ProtocolTagged, p.Name())

	p, err = NewProtocol(ProtocolLegacy)
	require.NoError(t, err)
	assert.Equal(t, ProtocolLegacy, p.Name())

	_, err = NewProtocol("rtp")
	assert.Error(t, err)
}
