package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yndnr/towerlink-go/internal/core/domain"
)

// GCSConfig configures the Google Cloud Storage backend.
type GCSConfig struct {
	Bucket string
	// CredentialsFile is a service account JSON key. Empty uses the
	// environment's default credentials.
	CredentialsFile string
}

// GCSStore implements Store on a GCS bucket; each key is one object.
type GCSStore struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
}

// OpenGCS creates a GCS client.
func OpenGCS(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs: bucket is required")
	}

	opts := []option.ClientOption{option.WithScopes(gcs.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}

	return &GCSStore{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
	}, nil
}

// Put uploads value as the object for key. The object becomes visible only
// when the writer closes successfully.
func (g *GCSStore) Put(ctx context.Context, key string, value []byte) error {
	w := g.bucket.Object(key).NewWriter(ctx)
	if _, err := w.Write(value); err != nil {
		_ = w.Close()
		return domain.ErrStoreWriteFailed.WithDetails(key).Wrap(err)
	}
	if err := w.Close(); err != nil {
		return domain.ErrStoreWriteFailed.WithDetails(key).Wrap(err)
	}
	return nil
}

// Get downloads the object for key.
func (g *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, domain.ErrStoreNotFound.WithDetails(key).Wrap(err)
		}
		return nil, domain.ErrStoreUnreachable.WithDetails(key).Wrap(err)
	}
	defer r.Close()

	value, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.ErrStoreUnreachable.WithDetails(key).Wrap(err)
	}
	return value, nil
}

// Close releases the client.
func (g *GCSStore) Close() error {
	return g.client.Close()
}
