package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudflare/cloudflare-go"

	"github.com/yndnr/towerlink-go/internal/core/domain"
)

// MinCloudflareTTL is the shortest expiration Workers KV accepts.
const MinCloudflareTTL = 60 * time.Second

// CloudflareConfig configures the Workers KV backend. Account and namespace
// are explicit configuration, passed in once at startup.
type CloudflareConfig struct {
	APIToken    string
	AccountID   string
	NamespaceID string
	// BaseURL overrides the API endpoint. Empty uses the production API.
	BaseURL string
	// TTL expires every written entry, so copies disappear once the
	// sender stops refreshing them. Zero keeps entries forever.
	TTL time.Duration
}

// workersKV is the subset of the Cloudflare API client used here.
type workersKV interface {
	WriteWorkersKVEntry(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.WriteWorkersKVEntryParams) (cloudflare.Response, error)
	WriteWorkersKVEntries(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.WriteWorkersKVEntriesParams) (cloudflare.Response, error)
	GetWorkersKV(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.GetWorkersKVParams) ([]byte, error)
}

// CloudflareStore implements Store on Cloudflare Workers KV.
type CloudflareStore struct {
	api         workersKV
	account     *cloudflare.ResourceContainer
	namespaceID string
	ttl         int // seconds
	logger      *slog.Logger
}

// OpenCloudflare creates a Workers KV client authenticated with an API token.
func OpenCloudflare(cfg CloudflareConfig, logger *slog.Logger) (*CloudflareStore, error) {
	if cfg.APIToken == "" {
		return nil, errors.New("cloudflare: api token is required")
	}
	if cfg.AccountID == "" || cfg.NamespaceID == "" {
		return nil, errors.New("cloudflare: account id and namespace id are required")
	}

	var opts []cloudflare.Option
	if cfg.BaseURL != "" {
		opts = append(opts, cloudflare.BaseURL(cfg.BaseURL))
	}
	api, err := cloudflare.NewWithAPIToken(cfg.APIToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: create client: %w", err)
	}

	return newCloudflareStore(api, cfg, logger), nil
}

func newCloudflareStore(api workersKV, cfg CloudflareConfig, logger *slog.Logger) *CloudflareStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudflareStore{
		api:         api,
		account:     cloudflare.AccountIdentifier(cfg.AccountID),
		namespaceID: cfg.NamespaceID,
		ttl:         int(cfg.TTL / time.Second),
		logger:      logger,
	}
}

// Put writes value under key. With a TTL the bulk endpoint is used, the
// only one that carries an expiration; values travel base64 encoded.
func (s *CloudflareStore) Put(ctx context.Context, key string, value []byte) error {
	var err error
	if s.ttl > 0 {
		_, err = s.api.WriteWorkersKVEntries(ctx, s.account, cloudflare.WriteWorkersKVEntriesParams{
			NamespaceID: s.namespaceID,
			KVs: []*cloudflare.WorkersKVPair{{
				Key:           key,
				Value:         base64.StdEncoding.EncodeToString(value),
				ExpirationTTL: s.ttl,
				Base64:        true,
			}},
		})
	} else {
		_, err = s.api.WriteWorkersKVEntry(ctx, s.account, cloudflare.WriteWorkersKVEntryParams{
			NamespaceID: s.namespaceID,
			Key:         key,
			Value:       value,
		})
	}
	if err != nil {
		return domain.ErrStoreWriteFailed.WithDetails(key).Wrap(err)
	}
	return nil
}

// Get reads the raw value stored under key.
func (s *CloudflareStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.api.GetWorkersKV(ctx, s.account, cloudflare.GetWorkersKVParams{
		NamespaceID: s.namespaceID,
		Key:         key,
	})
	if err != nil {
		if isCloudflareNotFound(err) {
			return nil, domain.ErrStoreNotFound.WithDetails(key).Wrap(err)
		}
		return nil, domain.ErrStoreUnreachable.WithDetails(key).Wrap(err)
	}
	return value, nil
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (s *CloudflareStore) Close() error {
	return nil
}

func isCloudflareNotFound(err error) bool {
	var nf *cloudflare.NotFoundError
	if errors.As(err, &nf) {
		return true
	}
	var apiErr *cloudflare.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
