package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/towerlink-go/internal/arbiter"
	"github.com/yndnr/towerlink-go/internal/config"
	"github.com/yndnr/towerlink-go/internal/core/domain"
	"github.com/yndnr/towerlink-go/internal/fallback"
	"github.com/yndnr/towerlink-go/internal/push"
	"github.com/yndnr/towerlink-go/internal/storage"
	"github.com/yndnr/towerlink-go/internal/telemetry/metric"
	"github.com/yndnr/towerlink-go/internal/transport"
	"github.com/yndnr/towerlink-go/pkg/crypto/adaptive"
)

// Receiver performs one failover attempt.
type Receiver struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metric.Registry

	// Replaced in tests.
	openStore func(context.Context, storage.Config, *slog.Logger) (storage.Store, error)
	dial      func(context.Context, string, transport.TrustPolicy, ...transport.Option) (*transport.Connection, error)
}

// Option configures a Receiver.
type Option func(*Receiver)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Receiver) { r.logger = l }
}

// WithMetrics sets the metric registry.
func WithMetrics(m *metric.Registry) Option {
	return func(r *Receiver) { r.metrics = m }
}

// New creates a receiver. cfg should have passed config.VerifyReceiver.
func New(cfg *config.Config, opts ...Option) *Receiver {
	r := &Receiver{
		cfg:       cfg,
		logger:    slog.Default(),
		openStore: storage.Open,
		dial:      transport.Dial,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = metric.NewRegistry()
	}
	if err := r.metrics.Register(metric.NewFileAgeCollector(cfg.Receiver.OutputPath, "receiver")); err != nil {
		r.logger.Warn("output file age metric disabled", "error", err)
	}
	return r
}

// Run races the push and fallback paths and returns nil once one of them
// has written the output file. When both fail the error matches
// domain.ErrNoSourceAvailable.
func (r *Receiver) Run(ctx context.Context) error {
	cfg := r.cfg

	policy, err := transport.NewPolicy(cfg.Transport.Trust, cfg.Transport.Pin, cfg.Transport.CAFile)
	if err != nil {
		return fmt.Errorf("receiver: trust policy: %w", err)
	}

	var key []byte
	if cfg.Replication.EncryptionKey != "" {
		if key, err = adaptive.ParseKey(cfg.Replication.EncryptionKey); err != nil {
			return fmt.Errorf("replication.encryption_key: %w", err)
		}
	}

	store := r.store(ctx)
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				r.logger.Warn("store close failed", "error", err)
			}
		}()
	}

	client := push.NewClient(push.ClientConfig{
		MaxBlobSize:   uint64(cfg.Push.MaxBlobSize),
		StreamTimeout: cfg.Push.StreamTimeout,
		Linger:        cfg.Push.Linger,
	}, r.logger.With("path", push.PathName), r.metrics)

	acquirer := fallback.New(store, fallback.Config{
		StalenessBound: cfg.Receiver.StalenessBound,
		Key:            key,
	}, fallback.WithLogger(r.logger.With("path", fallback.PathName)), fallback.WithMetrics(r.metrics))

	r.logger.Info("failover attempt started",
		"sender_addr", cfg.Receiver.SenderAddr,
		"output_path", cfg.Receiver.OutputPath,
		"trust", policy.Name(),
		"store", cfg.Store.Backend,
		"staleness_bound", cfg.Receiver.StalenessBound,
	)

	start := time.Now()
	err = arbiter.New(cfg.Receiver.OutputPath, r.logger, r.metrics).Run(ctx,
		arbiter.Path{
			Name: push.PathName,
			Run: func(ctx context.Context, gate *arbiter.Gate) error {
				return r.runPush(ctx, gate, policy, client)
			},
		},
		arbiter.Path{
			Name: fallback.PathName,
			Run: func(ctx context.Context, gate *arbiter.Gate) error {
				return acquirer.Run(ctx, gate)
			},
		},
	)
	if err != nil {
		r.logger.Error("failover attempt failed", "error", err, "elapsed", time.Since(start))
		return err
	}

	r.logger.Info("failover attempt complete", "elapsed", time.Since(start))
	return nil
}

// runPush dials the sender until it connects, the dial budget runs out,
// or another path commits, then receives one blob.
func (r *Receiver) runPush(ctx context.Context, gate *arbiter.Gate, policy transport.TrustPolicy, client *push.Client) error {
	conn, err := r.connect(ctx, gate, policy)
	if err != nil {
		return err
	}
	return client.Receive(ctx, conn, gate)
}

func (r *Receiver) connect(ctx context.Context, gate *arbiter.Gate, policy transport.TrustPolicy) (*transport.Connection, error) {
	cfg := r.cfg

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Receiver.DialTimeout)
	defer cancel()
	go func() {
		select {
		case <-gate.Committed():
			cancel()
		case <-dialCtx.Done():
		}
	}()

	opts := []transport.Option{
		transport.WithHandshakeTimeout(cfg.Transport.HandshakeTimeout),
		transport.WithIdleTimeout(cfg.Transport.IdleTimeout),
	}
	if cfg.Transport.ALPN != "" {
		opts = append(opts, transport.WithALPN(cfg.Transport.ALPN))
	}
	if cfg.Transport.ServerName != "" {
		opts = append(opts, transport.WithServerName(cfg.Transport.ServerName))
	}

	limiter := rate.NewLimiter(rate.Every(cfg.Receiver.RetryInterval), 1)
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(dialCtx); err != nil {
			break
		}

		conn, err := r.dial(dialCtx, cfg.Receiver.SenderAddr, policy, opts...)
		if err == nil {
			r.logger.Debug("connected to sender", "attempt", attempt, "remote", conn.RemoteAddr().String())
			return conn, nil
		}
		lastErr = err

		// A certificate the policy rejects will not change between attempts.
		if errors.Is(err, domain.ErrHandshakeFailed) {
			return nil, err
		}
		r.logger.Debug("dial failed", "attempt", attempt, "error", err)
	}

	select {
	case <-gate.Committed():
		return nil, arbiter.ErrLostArbitration
	default:
	}
	if lastErr == nil {
		lastErr = domain.ErrTimeout.WithDetails("dial budget exhausted")
	}
	return nil, lastErr
}

func (r *Receiver) store(ctx context.Context) storage.Store {
	backend, err := r.openStore(ctx, r.cfg.Store.StorageConfig(), r.logger)
	if err != nil {
		r.logger.Error("durable store unavailable, fallback disabled", "backend", r.cfg.Store.Backend, "error", err)
		return nil
	}
	if backend == nil {
		return nil
	}
	return storage.Wrap(backend, storage.Options{
		Prefix:  r.cfg.Store.Prefix,
		Timeout: r.cfg.Store.Timeout,
		Logger:  r.logger.With("component", "store"),
		Metrics: r.metrics,
	})
}
