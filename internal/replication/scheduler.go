package replication

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/yndnr/towerlink-go/internal/core/domain"
	"github.com/yndnr/towerlink-go/internal/storage"
	"github.com/yndnr/towerlink-go/internal/telemetry/metric"
	"github.com/yndnr/towerlink-go/pkg/crypto/adaptive"
)

// DefaultInterval is the replication period.
const DefaultInterval = 30 * time.Second

// Cycle outcomes, as logged and counted.
const (
	OutcomeOK             = "ok"
	OutcomeSourceError    = "source_error"
	OutcomeSealError      = "seal_error"
	OutcomeBlobFailed     = "blob_failed"
	OutcomeMetadataFailed = "metadata_failed"
)

// Config configures the scheduler.
type Config struct {
	// SourcePath is the authoritative tower file.
	SourcePath string
	// Interval between ticks. Zero means DefaultInterval.
	Interval time.Duration
}

// Scheduler periodically copies the tower file into the durable store.
type Scheduler struct {
	store   storage.Store
	cfg     Config
	cipher  adaptive.Cipher
	logger  *slog.Logger
	metrics *metric.Registry
	now     func() time.Time
	read    func(string) ([]byte, error)

	lastSuccess atomic.Int64 // unix nanoseconds
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithCipher seals the blob before it leaves the host.
func WithCipher(c adaptive.Cipher) Option {
	return func(s *Scheduler) {
		s.cipher = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithMetrics records cycle outcomes in r.
func WithMetrics(r *metric.Registry) Option {
	return func(s *Scheduler) {
		s.metrics = r
	}
}

// WithClock overrides the metadata timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New creates a scheduler. A nil store yields a scheduler whose Run only
// waits for cancellation.
func New(store storage.Store, cfg Config, opts ...Option) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	s := &Scheduler{
		store:  store,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
		read:   os.ReadFile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether a durable store is configured.
func (s *Scheduler) Enabled() bool {
	return s.store != nil
}

// Interval returns the effective tick period.
func (s *Scheduler) Interval() time.Duration {
	return s.cfg.Interval
}

// LastSuccess returns the time of the last complete cycle, or the zero
// time if none has completed.
func (s *Scheduler) LastSuccess() time.Time {
	n := s.lastSuccess.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Run replicates once immediately and then on every tick until ctx is
// done. It never returns an error for store or source failures; those
// only skip the tick.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.store == nil {
		s.logger.Info("replication disabled: no durable store configured")
		<-ctx.Done()
		return nil
	}

	s.logger.Info("replication scheduler started",
		"source", s.cfg.SourcePath,
		"interval", s.cfg.Interval,
		"encrypted", s.cipher != nil,
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		_ = s.RunOnce(ctx)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.logger.Info("replication scheduler stopped")
			return nil
		}
	}
}

// RunOnce performs a single replication cycle.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	outcome, err := s.cycle(ctx)

	if s.metrics != nil {
		s.metrics.ReplicationCycles.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		s.logger.Warn("replication tick skipped", "outcome", outcome, "error", err)
		return err
	}
	return nil
}

func (s *Scheduler) cycle(ctx context.Context) (string, error) {
	blob, err := s.read(s.cfg.SourcePath)
	if err != nil {
		return OutcomeSourceError, err
	}

	stored := blob
	if s.cipher != nil {
		if stored, err = adaptive.Seal(s.cipher, blob, []byte(storage.KeyTowerFile)); err != nil {
			return OutcomeSealError, err
		}
	}

	if err := s.store.Put(ctx, storage.KeyTowerFile, stored); err != nil {
		return OutcomeBlobFailed, err
	}

	// Metadata goes second so its presence implies the blob is retrievable.
	now := s.now()
	sum := sha256.Sum256(stored)
	meta := domain.NewMetadata(now, len(stored), hex.EncodeToString(sum[:]), s.cipher != nil)
	if err := s.store.Put(ctx, storage.KeyTowerMetadata, meta.Encode()); err != nil {
		return OutcomeMetadataFailed, err
	}

	s.lastSuccess.Store(now.UnixNano())
	if s.metrics != nil {
		s.metrics.ReplicationLastSuccess.Set(float64(now.Unix()))
	}
	s.logger.Debug("tower replicated", "bytes", len(blob), "timestamp", meta.Timestamp)
	return OutcomeOK, nil
}
