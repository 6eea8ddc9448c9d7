package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"framewire/internal/core/domain"
	"framewire/internal/core/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type streamMode struct {
	use   string
	short string
	role  domain.Role
}

var (
	streamSend    = streamMode{use: "send", short: "Capture frames and send them to a peer", role: domain.RoleProducer}
	streamReceive = streamMode{use: "receive", short: "Receive and decode frames", role: domain.RoleConsumer}
	streamPeer    = streamMode{use: "peer", short: "Send and receive frames on one socket", role: domain.RolePeer}
)

type streamOptions struct {
	peer     string
	listen   string
	quality  int
	duration time.Duration
}

func newStreamCommand(root *rootOptions, mode streamMode) *cobra.Command {
	opts := &streamOptions{quality: -1}

	cmd := &cobra.Command{
		Use:   mode.use,
		Short: mode.short,
		Example: `  framewire receive --listen :6666
  framewire send --peer 127.0.0.1:6666 --quality 50
  framewire peer --listen :6667 --peer 10.0.0.2:6666`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if opts.peer != "" {
				cfg.Transport.PeerAddress = opts.peer
			}
			if opts.listen != "" {
				cfg.Transport.ListenAddress = opts.listen
			}
			if opts.quality >= 0 {
				cfg.Stream.Quality = opts.quality
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if mode.role.Produces() && cfg.Transport.PeerAddress == "" {
				return errors.New("a peer address is required (--peer or transport.peer_address)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if opts.duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.duration)
				defer cancel()
			}

			a, err := newApp(ctx, cfg, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := runStream(ctx, a, mode.role)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.listen, "listen", "", "Local UDP address to bind (overrides transport.listen_address)")
	flags.IntVar(&opts.quality, "quality", -1, "JPEG quality 0-100 (overrides stream.quality)")
	flags.DurationVar(&opts.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	if mode.role.Produces() {
		flags.StringVar(&opts.peer, "peer", "", "Peer UDP address host:port (overrides transport.peer_address)")
	} else {
		flags.StringVar(&opts.peer, "peer", "", "Address to notify on local stop before any sender is seen")
	}

	return cmd
}

// runStream runs one session until ctx is cancelled or the session stops on its
// own (peer stop, source exhausted, channel closed).
func runStream(ctx context.Context, a *app, role domain.Role) (*domain.SessionReport, error) {
	session, err := a.newSession(role)
	if err != nil {
		return nil, err
	}
	if err := session.Start(ctx, ""); err != nil {
		return nil, err
	}
	a.log.Infow("session running", "session_id", string(session.ID()), "local", session.LocalAddr().String())

	select {
	case <-ctx.Done():
		if _, err := session.Stop(context.Background()); err != nil && !errors.Is(err, domain.ErrNotStarted) {
			return nil, err
		}
	case <-session.Done():
	}

	if err := waitSession(session, 5*time.Second); err != nil {
		a.log.Warnw("session loops exited with error", "error", err)
	}
	return session.Report(), nil
}

func waitSession(session *services.StreamSession, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- session.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("session loops still running after %s", timeout)
	}
}

func printReport(w io.Writer, report *domain.SessionReport) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "Session %s (%s) stopped: %s after %s\n",
		report.SessionID, report.Role, report.Reason, report.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Frames sent: %d, received: %d, dropped: %d\n",
		report.Counters.FramesSent, report.Counters.FramesReceived, report.Counters.FramesDropped)
	fmt.Fprintf(w, "Average latency: %.6f seconds\n", report.Summary.AvgLatencySeconds)
	fmt.Fprintf(w, "Average compressed frame size: %.1f bytes\n", report.Summary.AvgCompressedBytes)
	fmt.Fprintf(w, "Average raw frame size: %.1f bytes\n", report.Summary.AvgRawBytes)
}
