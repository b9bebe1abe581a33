package config

import "github.com/yndnr/towerlink-go/internal/storage"

// InferStoreBackend selects the cloudflare backend when a Cloudflare API
// token is present and no backend was named, so that passing only the
// token enables the KV fallback copy.
func (c *Config) InferStoreBackend() {
	if c.Store.Backend == storage.BackendNone && c.Store.Cloudflare.APIToken != "" {
		c.Store.Backend = storage.BackendCloudflare
	}
}
