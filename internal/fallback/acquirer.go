package fallback

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yndnr/towerlink-go/internal/arbiter"
	"github.com/yndnr/towerlink-go/internal/core/domain"
	"github.com/yndnr/towerlink-go/internal/storage"
	"github.com/yndnr/towerlink-go/internal/telemetry/metric"
	"github.com/yndnr/towerlink-go/pkg/crypto/adaptive"
)

// PathName identifies the fallback path to the arbiter.
const PathName = "fallback"

// DefaultStalenessBound is the maximum accepted snapshot age.
const DefaultStalenessBound = 300 * time.Second

// Outcomes, as logged and counted.
const (
	OutcomeOK          = "ok"
	OutcomeStale       = "stale"
	OutcomeMalformed   = "malformed"
	OutcomeFetchFailed = "fetch_failed"
	OutcomeSuppressed  = "suppressed"
	OutcomeDisabled    = "disabled"
)

// checksumAttempts bounds how often a checksum mismatch caused by a
// concurrent replication tick is retried.
const checksumAttempts = 2

// Committer persists an acquired blob. *arbiter.Gate satisfies it.
type Committer interface {
	Commit(source string, data []byte) error
}

// Config configures acquisition.
type Config struct {
	// StalenessBound is the maximum accepted age. Zero means DefaultStalenessBound.
	StalenessBound time.Duration
	// Key opens sealed blobs. Nil means blobs are expected in plaintext.
	Key []byte
}

// Acquirer performs one-shot, staleness-gated reads from the store.
type Acquirer struct {
	store   storage.Store
	cfg     Config
	logger  *slog.Logger
	metrics *metric.Registry
	now     func() time.Time
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Acquirer) {
		a.logger = logger
	}
}

// WithMetrics records outcomes in r.
func WithMetrics(r *metric.Registry) Option {
	return func(a *Acquirer) {
		a.metrics = r
	}
}

// WithClock overrides the time used for the age check.
func WithClock(now func() time.Time) Option {
	return func(a *Acquirer) {
		a.now = now
	}
}

// New creates an acquirer. store may be nil, in which case every attempt
// fails with domain.ErrStoreUnreachable.
func New(store storage.Store, cfg Config, opts ...Option) *Acquirer {
	if cfg.StalenessBound <= 0 {
		cfg.StalenessBound = DefaultStalenessBound
	}
	a := &Acquirer{
		store:  store,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run acquires the blob and commits it through dst.
func (a *Acquirer) Run(ctx context.Context, dst Committer) error {
	blob, err := a.Acquire(ctx)
	if err != nil {
		return err
	}

	if err := dst.Commit(PathName, blob); err != nil {
		if errors.Is(err, arbiter.ErrLostArbitration) {
			a.observe(OutcomeSuppressed)
			return err
		}
		a.observe(OutcomeFetchFailed)
		return domain.ErrFetchFailed.WithDetails("persist").Wrap(err)
	}

	a.observe(OutcomeOK)
	return nil
}

// Acquire returns the stored tower file if it is fresh enough.
//
// A blob that still disagrees with fresh metadata after a retry is
// accepted: blobs are written before metadata, so it can only be newer
// than the metadata describes. Sealed blobs are then authenticated by
// the AEAD open alone.
//
// Errors match domain.ErrMetadataFormat, domain.ErrStaleData or
// domain.ErrFetchFailed.
func (a *Acquirer) Acquire(ctx context.Context) ([]byte, error) {
	if a.store == nil {
		a.observe(OutcomeDisabled)
		return nil, domain.ErrStoreUnreachable.WithDetails("no durable store configured")
	}

	blob, err := a.acquire(ctx)
	if err != nil {
		a.observe(outcomeOf(err))
		return nil, err
	}
	return blob, nil
}

func (a *Acquirer) acquire(ctx context.Context) ([]byte, error) {
	var (
		meta   *domain.Metadata
		stored []byte
	)
	for attempt := 1; ; attempt++ {
		var err error
		if meta, err = a.readMetadata(ctx); err != nil {
			return nil, err
		}
		if err := a.checkAge(meta); err != nil {
			return nil, err
		}

		stored, err = a.store.Get(ctx, storage.KeyTowerFile)
		if err != nil {
			return nil, domain.ErrFetchFailed.WithDetails(storage.KeyTowerFile).Wrap(err)
		}

		if matches(meta, stored) {
			sealed := meta != nil && meta.Encrypted
			if meta == nil && a.cfg.Key != nil {
				// Without metadata the envelope header is the only hint.
				sealed = adaptive.IsSealed(stored)
			}
			return a.unseal(sealed, stored)
		}
		if attempt >= checksumAttempts {
			break
		}
		// A tick may land between the two reads; the next metadata read
		// will describe the new blob.
		a.logger.Debug("fallback blob changed during read, retrying")
	}

	a.logger.Warn("fallback blob is newer than its metadata, accepting it",
		"captured_at", meta.CapturedAt().UTC(),
		"bytes", len(stored),
	)
	sealed := meta.Encrypted
	if a.cfg.Key != nil {
		sealed = adaptive.IsSealed(stored)
	}
	return a.unseal(sealed, stored)
}

func (a *Acquirer) checkAge(meta *domain.Metadata) error {
	if meta == nil {
		return nil
	}
	age := meta.Age(a.now())
	if age <= a.cfg.StalenessBound {
		return nil
	}
	a.logger.Info("fallback snapshot too stale",
		"age", age,
		"bound", a.cfg.StalenessBound,
		"captured_at", meta.CapturedAt().UTC(),
	)
	return domain.ErrStaleData.WithDetails(fmt.Sprintf("age %s exceeds bound %s", age, a.cfg.StalenessBound))
}

// matches reports whether stored is the blob meta describes. Metadata
// without a checksum matches anything.
func matches(meta *domain.Metadata, stored []byte) bool {
	if meta == nil || meta.Checksum == "" {
		return true
	}
	sum := sha256.Sum256(stored)
	return hex.EncodeToString(sum[:]) == meta.Checksum
}

// readMetadata returns nil metadata when freshness is unknown.
func (a *Acquirer) readMetadata(ctx context.Context) (*domain.Metadata, error) {
	raw, err := a.store.Get(ctx, storage.KeyTowerMetadata)
	switch {
	case errors.Is(err, domain.ErrStoreNotFound):
		a.logger.Info("no freshness metadata in store, fetching best-effort")
		return nil, nil
	case err != nil:
		a.logger.Warn("freshness metadata unreadable, fetching best-effort", "error", err)
		return nil, nil
	}

	meta, err := domain.DecodeMetadata(raw)
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (a *Acquirer) unseal(sealed bool, stored []byte) ([]byte, error) {
	if !sealed {
		return stored, nil
	}

	if a.cfg.Key == nil {
		return nil, domain.ErrFetchFailed.WithDetails("blob is encrypted and no key is configured")
	}
	blob, err := adaptive.Open(a.cfg.Key, stored, []byte(storage.KeyTowerFile))
	if err != nil {
		return nil, domain.ErrFetchFailed.WithDetails("decrypt").Wrap(err)
	}
	return blob, nil
}

func (a *Acquirer) observe(outcome string) {
	if a.metrics != nil {
		a.metrics.FallbackOutcomes.WithLabelValues(outcome).Inc()
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrStaleData):
		return OutcomeStale
	case errors.Is(err, domain.ErrMetadataFormat):
		return OutcomeMalformed
	default:
		return OutcomeFetchFailed
	}
}
