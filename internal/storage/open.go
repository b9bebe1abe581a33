package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendNone       = ""
	BackendMemory     = "memory"
	BackendBadger     = "badger"
	BackendCloudflare = "cloudflare"
	BackendS3         = "s3"
	BackendGCS        = "gcs"
)

// Config selects and configures a backend.
type Config struct {
	Backend    string
	Cloudflare CloudflareConfig
	Badger     BadgerConfig
	S3         S3Config
	GCS        GCSConfig
}

// Open constructs the configured backend. It returns (nil, nil) when no
// backend is configured: a missing store disables the fallback copy, it is
// not an error.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendNone, "none":
		return nil, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendBadger:
		s, err := OpenBadger(cfg.Badger, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendCloudflare:
		s, err := OpenCloudflare(cfg.Cloudflare, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendS3:
		s, err := OpenS3(cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendGCS:
		s, err := OpenGCS(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
