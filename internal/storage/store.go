package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yndnr/towerlink-go/internal/core/domain"
	"github.com/yndnr/towerlink-go/internal/telemetry/metric"
)

// Well-known keys of the single replication slot.
const (
	KeyTowerFile     = "tower_file"
	KeyTowerMetadata = "tower_metadata"
)

// Store is the durable key-value capability.
//
// Get returns an error matching domain.ErrStoreNotFound when the key does not
// exist. Other failures match domain.ErrStoreUnreachable (reads) or
// domain.ErrStoreWriteFailed (writes).
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Close() error
}

// Options configures the client wrapper returned by Wrap.
type Options struct {
	// Prefix is prepended to every key. Empty means keys are used verbatim.
	Prefix string
	// Timeout bounds each request. Zero disables the bound.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *metric.Registry
}

// client decorates a backend with key prefixing, per-request deadlines,
// latency metrics and timing logs.
type client struct {
	backend Store
	opts    Options
	logger  *slog.Logger
}

// Wrap returns backend decorated according to opts.
func Wrap(backend Store, opts Options) Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &client{backend: backend, opts: opts, logger: logger}
}

func (c *client) Put(ctx context.Context, key string, value []byte) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	start := time.Now()
	err := c.backend.Put(ctx, c.opts.Prefix+key, value)
	err = classify(ctx, err, domain.ErrStoreWriteFailed)
	c.observe("put", key, start, err)
	return err
}

func (c *client) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	start := time.Now()
	value, err := c.backend.Get(ctx, c.opts.Prefix+key)
	err = classify(ctx, err, domain.ErrStoreUnreachable)
	c.observe("get", key, start, err)
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (c *client) Close() error {
	return c.backend.Close()
}

func (c *client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opts.Timeout)
}

func (c *client) observe(op, key string, start time.Time, err error) {
	elapsed := time.Since(start)
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrStoreNotFound):
		result = "not_found"
	case errors.Is(err, domain.ErrTimeout):
		result = "timeout"
	default:
		result = "error"
	}

	if c.opts.Metrics != nil {
		c.opts.Metrics.StoreLatency.WithLabelValues(op, result).Observe(elapsed.Seconds())
	}
	c.logger.Debug("store request",
		"op", op,
		"store_key", key,
		"result", result,
		"elapsed", elapsed)
}

// classify maps backend errors onto the store taxonomy. Errors that already
// carry a store code pass through; deadline expiry becomes ErrTimeout;
// anything else is wrapped with fallback.
func classify(ctx context.Context, err error, fallback *domain.DomainError) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrStoreNotFound) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if errors.Is(err, domain.ErrTimeout) {
			return err
		}
		return domain.ErrTimeout.Wrap(err)
	}
	if errors.Is(err, domain.ErrStoreUnreachable) ||
		errors.Is(err, domain.ErrStoreWriteFailed) ||
		errors.Is(err, domain.ErrTimeout) {
		return err
	}
	return fallback.Wrap(err)
}
