package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"framewire/internal/core/domain"
	"framewire/internal/core/ports"
	"framewire/pkg/optimize"

	"go.uber.org/zap"
)

const (
	// MaxUDPPayload is the largest payload of a single IPv4 UDP datagram.
	MaxUDPPayload = 65507

	// DefaultReceiveBufferSize matches the receive ceiling of the reference receiver.
	DefaultReceiveBufferSize = 1000000
)

// UDPConfig configures channels created by a UDPOpener.
type UDPConfig struct {
	MaxDatagramSize   int
	ReceiveBufferSize int
	// SendBufferBytes is passed to SO_SNDBUF; 0 leaves the OS default.
	SendBufferBytes int
}

func DefaultUDPConfig() UDPConfig {
	return UDPConfig{
		MaxDatagramSize:   MaxUDPPayload,
		ReceiveBufferSize: DefaultReceiveBufferSize,
		SendBufferBytes:   DefaultReceiveBufferSize,
	}
}

// UDPOpener opens UDP DatagramChannels.
type UDPOpener struct {
	config UDPConfig
	pool   *optimize.BytePool
	logger *zap.SugaredLogger
}

func NewUDPOpener(config UDPConfig, logger *zap.SugaredLogger) *UDPOpener {
	if config.MaxDatagramSize <= 0 || config.MaxDatagramSize > MaxUDPPayload {
		config.MaxDatagramSize = MaxUDPPayload
	}
	if config.ReceiveBufferSize <= 0 {
		config.ReceiveBufferSize = DefaultReceiveBufferSize
	}
	return &UDPOpener{
		config: config,
		pool:   optimize.NewBytePool(config.ReceiveBufferSize),
		logger: logger,
	}
}

func (o *UDPOpener) Open(ctx context.Context, localBind string) (ports.DatagramChannel, error) {
	if localBind == "" {
		localBind = ":0"
	}
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", localBind)
	if err != nil {
		return nil, fmt.Errorf("failed to bind udp %s: %w", localBind, err)
	}
	conn := pc.(*net.UDPConn)

	if o.config.SendBufferBytes > 0 {
		// best effort; the kernel may cap it
		if err := conn.SetWriteBuffer(o.config.SendBufferBytes); err != nil {
			o.logger.Warnw("failed to set udp send buffer", "bytes", o.config.SendBufferBytes, "error", err)
		}
	}

	o.logger.Debugw("udp channel opened", "local", conn.LocalAddr().String())
	return &UDPChannel{
		conn:            conn,
		maxDatagramSize: o.config.MaxDatagramSize,
		pool:            o.pool,
	}, nil
}

func (o *UDPOpener) ResolvePeer(address string) (net.Addr, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve peer %q: %w", address, err)
	}
	return addr, nil
}

// UDPChannel is a DatagramChannel over one UDP socket. Send and Receive may be
// called concurrently.
type UDPChannel struct {
	conn            *net.UDPConn
	maxDatagramSize int
	pool            *optimize.BytePool
	closed          atomic.Bool
}

func (c *UDPChannel) Send(peer net.Addr, data []byte) error {
	if len(data) > c.maxDatagramSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrPayloadTooLarge, len(data), c.maxDatagramSize)
	}
	if c.closed.Load() {
		return domain.ErrChannelClosed
	}
	if _, err := c.conn.WriteTo(data, peer); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return domain.ErrChannelClosed
		}
		return fmt.Errorf("udp send to %s: %w", peer, err)
	}
	return nil
}

func (c *UDPChannel) Receive(maxSize int) ([]byte, net.Addr, error) {
	if c.closed.Load() {
		return nil, nil, domain.ErrChannelClosed
	}

	var buf []byte
	pooled := maxSize <= 0 || maxSize <= c.pool.Size()
	if pooled {
		buf = c.pool.Get()
		defer c.pool.Put(buf)
		if maxSize > 0 {
			buf = buf[:maxSize]
		}
	} else {
		buf = make([]byte, maxSize)
	}

	n, addr, err := c.conn.ReadFrom(buf)
	if err != nil {
		if errors.Is(err, net.ErrClosed) || c.closed.Load() {
			return nil, nil, domain.ErrChannelClosed
		}
		return nil, nil, fmt.Errorf("udp receive: %w", err)
	}

	out := make([]byte, n)
	copy(out, buf[:n])
	return out, addr, nil
}

func (c *UDPChannel) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close unblocks any pending Receive. Calling it more than once is harmless.
func (c *UDPChannel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}
