package sender

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/towerlink-go/internal/config"
	"github.com/yndnr/towerlink-go/internal/core/domain"
	"github.com/yndnr/towerlink-go/internal/infra/confloader"
	"github.com/yndnr/towerlink-go/internal/infra/tlsroots"
	"github.com/yndnr/towerlink-go/internal/push"
	"github.com/yndnr/towerlink-go/internal/replication"
	"github.com/yndnr/towerlink-go/internal/server/httpserver"
	"github.com/yndnr/towerlink-go/internal/storage"
	"github.com/yndnr/towerlink-go/internal/telemetry/logger"
	"github.com/yndnr/towerlink-go/internal/telemetry/metric"
	"github.com/yndnr/towerlink-go/internal/transport"
	"github.com/yndnr/towerlink-go/pkg/crypto/adaptive"
)

// Sender is the push server plus the replication scheduler.
type Sender struct {
	cfg        *config.Config
	configFile string
	logger     *slog.Logger
	metrics    *metric.Registry

	// openStore is replaced in tests.
	openStore func(context.Context, storage.Config, *slog.Logger) (storage.Store, error)
	// ready is closed once the listener is bound.
	ready chan struct{}
	addr  string
}

// Option configures a Sender.
type Option func(*Sender)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sender) { s.logger = l }
}

// WithMetrics sets the metric registry.
func WithMetrics(r *metric.Registry) Option {
	return func(s *Sender) { s.metrics = r }
}

// WithConfigFile names the file cfg was loaded from, so that log level
// changes can be applied without a restart.
func WithConfigFile(path string) Option {
	return func(s *Sender) { s.configFile = path }
}

// New creates a sender. cfg should have passed config.VerifySender.
func New(cfg *config.Config, opts ...Option) *Sender {
	s := &Sender{
		cfg:       cfg,
		logger:    slog.Default(),
		openStore: storage.Open,
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metric.NewRegistry()
	}
	if err := s.metrics.Register(metric.NewFileAgeCollector(cfg.Sender.TowerFile, "sender")); err != nil {
		s.logger.Warn("tower file age metric disabled", "error", err)
	}
	return s
}

// Ready is closed once the QUIC listener is bound.
func (s *Sender) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listen address, valid after Ready.
func (s *Sender) Addr() string {
	return s.addr
}

// Run serves until ctx is done. It returns an error matching
// domain.ErrBind when the listener cannot start.
func (s *Sender) Run(ctx context.Context) error {
	cfg := s.cfg

	creds, certWatcher, err := s.credentials()
	if err != nil {
		return err
	}

	acceptor, err := transport.Listen(cfg.Sender.ListenAddr, creds, s.transportOptions()...)
	if err != nil {
		return err
	}
	defer acceptor.Close()
	s.addr = acceptor.Addr().String()
	close(s.ready)

	store := s.store(ctx)
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				s.logger.Warn("store close failed", "error", err)
			}
		}()
	}

	schedOpts := []replication.Option{
		replication.WithLogger(s.logger.With("component", "replication")),
		replication.WithMetrics(s.metrics),
	}
	if cfg.Replication.EncryptionKey != "" {
		c, err := cipherFromKey(cfg.Replication.EncryptionKey)
		if err != nil {
			return err
		}
		schedOpts = append(schedOpts, replication.WithCipher(c))
	}
	scheduler := replication.New(store, replication.Config{
		SourcePath: cfg.Sender.TowerFile,
		Interval:   cfg.Replication.Interval,
	}, schedOpts...)

	server := push.NewServer(acceptor, push.ServerConfig{
		SourcePath:       cfg.Sender.TowerFile,
		HandshakeTimeout: cfg.Transport.HandshakeTimeout,
		AckTimeout:       cfg.Push.AckTimeout,
	}, s.logger.With("component", "push"), s.metrics)

	s.logger.Info("sender started",
		"listen_addr", s.addr,
		"tower_file", cfg.Sender.TowerFile,
		"store", cfg.Store.Backend,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })
	if certWatcher != nil {
		g.Go(func() error { return certWatcher.Run(gctx) })
	}
	if cfg.Metrics.Addr != "" {
		ops := httpserver.New(cfg.Metrics.Addr, s.opsRouter(readiness{
			towerFile: cfg.Sender.TowerFile,
			scheduler: scheduler,
			started:   time.Now(),
			now:       time.Now,
		}), s.logger.With("component", "http"))
		g.Go(func() error { return ops.Run(gctx) })
	}
	if cfg.Sender.WatchConfig && s.configFile != "" {
		w, err := confloader.NewWatcher(s.configFile, confloader.WithWatcherLogger(s.logger))
		if err != nil {
			s.logger.Warn("config watch disabled", "error", err)
		} else {
			w.OnChange(s.reloadLogLevel)
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	err = g.Wait()
	s.logger.Info("sender stopped")
	return err
}

func (s *Sender) credentials() (transport.Credentials, *tlsroots.Watcher, error) {
	cfg := s.cfg.Sender
	if !cfg.WatchCerts {
		creds, err := transport.LoadCredentials(cfg.CertFile, cfg.KeyFile)
		return creds, nil, err
	}
	w, err := tlsroots.NewWatcher(cfg.CertFile, cfg.KeyFile, tlsroots.WithLogger(s.logger))
	if err != nil {
		return nil, nil, domain.ErrBind.WithDetails("load key pair").Wrap(err)
	}
	return w, w, nil
}

func (s *Sender) transportOptions() []transport.Option {
	t := s.cfg.Transport
	opts := []transport.Option{
		transport.WithHandshakeTimeout(t.HandshakeTimeout),
		transport.WithIdleTimeout(t.IdleTimeout),
	}
	if t.ALPN != "" {
		opts = append(opts, transport.WithALPN(t.ALPN))
	}
	return opts
}

// store opens the configured backend. A store that cannot be opened
// disables replication; it never stops the push path.
func (s *Sender) store(ctx context.Context) storage.Store {
	backend, err := s.openStore(ctx, s.cfg.Store.StorageConfig(), s.logger)
	if err != nil {
		s.logger.Error("durable store unavailable, replication disabled", "backend", s.cfg.Store.Backend, "error", err)
		return nil
	}
	if backend == nil {
		return nil
	}
	return storage.Wrap(backend, storage.Options{
		Prefix:  s.cfg.Store.Prefix,
		Timeout: s.cfg.Store.Timeout,
		Logger:  s.logger.With("component", "store"),
		Metrics: s.metrics,
	})
}

func (s *Sender) reloadLogLevel(path string) {
	cfg := config.Default()
	if err := confloader.NewLoader(confloader.WithConfigFile(path)).Load(cfg); err != nil {
		s.logger.Warn("config reload failed", "file", path, "error", err)
		return
	}
	if !logger.ValidLevel(cfg.Log.Level) {
		s.logger.Warn("config reload ignored invalid log level", "level", cfg.Log.Level)
		return
	}
	if cfg.Log.Level != logger.GetLevel() {
		logger.SetLevel(cfg.Log.Level)
		s.logger.Info("log level changed", "level", cfg.Log.Level)
	}
}

func cipherFromKey(s string) (adaptive.Cipher, error) {
	key, err := adaptive.ParseKey(s)
	if err != nil {
		return nil, fmt.Errorf("replication.encryption_key: %w", err)
	}
	c, err := adaptive.New(key)
	if err != nil {
		return nil, fmt.Errorf("replication.encryption_key: %w", err)
	}
	return c, nil
}
