package push

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yndnr/towerlink-go/internal/arbiter"
	"github.com/yndnr/towerlink-go/internal/core/domain"
	"github.com/yndnr/towerlink-go/internal/telemetry/metric"
	"github.com/yndnr/towerlink-go/internal/transport"
)

// PathName identifies the push path to the arbiter.
const PathName = "push"

// Committer persists a received blob. *arbiter.Gate satisfies it.
type Committer interface {
	Commit(source string, data []byte) error
}

// ClientConfig configures the receiving side.
type ClientConfig struct {
	// MaxBlobSize caps the accepted frame payload.
	MaxBlobSize uint64
	// StreamTimeout bounds the wait for the sender's stream and its frame.
	StreamTimeout time.Duration
	// Linger is how long to wait for the sender to close the connection
	// after the ack, so the ack is not lost to an early local close.
	Linger time.Duration
}

// DefaultClientConfig returns the receiving defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxBlobSize:   DefaultMaxBlobSize,
		StreamTimeout: 30 * time.Second,
		Linger:        2 * time.Second,
	}
}

// Client receives one pushed blob per connection.
type Client struct {
	cfg     ClientConfig
	logger  *slog.Logger
	metrics *metric.Registry
}

// NewClient creates a push client. metrics may be nil.
func NewClient(cfg ClientConfig, logger *slog.Logger, metrics *metric.Registry) *Client {
	def := DefaultClientConfig()
	if cfg.MaxBlobSize == 0 {
		cfg.MaxBlobSize = def.MaxBlobSize
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = def.StreamTimeout
	}
	if cfg.Linger <= 0 {
		cfg.Linger = def.Linger
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, logger: logger, metrics: metrics}
}

// Receive runs Connected -> ReceivingBlob -> Persisted -> SendingAck -> Done
// on conn, which it closes before returning.
//
// It returns nil when the blob was committed, arbiter.ErrLostArbitration
// when another path committed first, and an error matching
// domain.ErrTransferFailed otherwise. Receive never redials.
func (c *Client) Receive(ctx context.Context, conn *transport.Connection, dst Committer) error {
	defer conn.Close()

	blob, stream, err := c.receive(ctx, conn)
	if err != nil {
		c.observe(OutcomeFailed, 0)
		return err
	}

	commitErr := dst.Commit(PathName, blob)

	ack := AckPersisted
	if commitErr != nil {
		ack = AckRejected
	}
	if _, err := stream.Write([]byte{ack}); err != nil {
		c.logger.Warn("ack not delivered", "error", err)
	} else if err := stream.CloseWrite(); err != nil {
		c.logger.Warn("ack half-close failed", "error", err)
	}
	c.linger(ctx, conn)

	switch {
	case commitErr == nil:
		c.observe(OutcomeAcked, len(blob))
		return nil
	case errors.Is(commitErr, arbiter.ErrLostArbitration):
		c.observe("suppressed", len(blob))
		return commitErr
	default:
		c.observe(OutcomeFailed, len(blob))
		return domain.ErrTransferFailed.WithDetails("persist").Wrap(commitErr)
	}
}

func (c *Client) receive(ctx context.Context, conn *transport.Connection) ([]byte, *transport.Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.StreamTimeout)
	defer cancel()

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return nil, nil, domain.ErrTransferFailed.WithDetails("accept stream").Wrap(err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(deadline)
	}
	blob, err := ReadFrame(stream, c.cfg.MaxBlobSize)
	if err != nil {
		stream.CancelRead(closeFailed)
		return nil, nil, domain.ErrTransferFailed.Wrap(err)
	}
	_ = stream.SetReadDeadline(time.Time{})

	return blob, stream, nil
}

// linger waits for the sender to close after reading the ack.
func (c *Client) linger(ctx context.Context, conn *transport.Connection) {
	t := time.NewTimer(c.cfg.Linger)
	defer t.Stop()

	select {
	case <-conn.Done():
	case <-t.C:
	case <-ctx.Done():
	}
}

func (c *Client) observe(outcome string, n int) {
	if c.metrics == nil {
		return
	}
	c.metrics.PushTransfers.WithLabelValues("receiver", outcome).Inc()
	if n > 0 {
		c.metrics.PushBytes.WithLabelValues("receiver").Add(float64(n))
	}
}
