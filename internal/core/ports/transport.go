package ports

import (
	"context"
	"net"

	"framewire/internal/core/domain"
)

// DatagramChannel is an unreliable, unordered message transport.
type DatagramChannel interface {
	Send(peer net.Addr, data []byte) error
	// Receive blocks until a datagram arrives or the channel is closed,
	// in which case it returns domain.ErrChannelClosed.
	Receive(maxSize int) ([]byte, net.Addr, error)
	LocalAddr() net.Addr
	Close() error
}

// ChannelOpener opens a DatagramChannel bound to localBind ("" for an ephemeral port).
type ChannelOpener interface {
	Open(ctx context.Context, localBind string) (DatagramChannel, error)
	ResolvePeer(address string) (net.Addr, error)
}

// WireProtocol converts between WireMessages and datagram bytes.
type WireProtocol interface {
	Marshal(msg domain.WireMessage) ([]byte, error)
	Unmarshal(data []byte) (domain.WireMessage, error)
	Name() string
}
