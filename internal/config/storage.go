package config

import (
	"github.com/yndnr/towerlink-go/internal/storage"
)

// StorageConfig maps the store section onto storage.Config.
func (s StoreSection) StorageConfig() storage.Config {
	return storage.Config{
		Backend: s.Backend,
		Cloudflare: storage.CloudflareConfig{
			APIToken:    s.Cloudflare.APIToken,
			AccountID:   s.Cloudflare.AccountID,
			NamespaceID: s.Cloudflare.NamespaceID,
			BaseURL:     s.Cloudflare.BaseURL,
			TTL:         s.Cloudflare.TTL,
		},
		Badger: storage.BadgerConfig{
			Dir:         s.Badger.Dir,
			SyncWrites:  s.Badger.SyncWrites,
			GCInterval:  s.Badger.GCInterval,
			GCThreshold: s.Badger.GCThreshold,
		},
		S3: storage.S3Config{
			Bucket:          s.S3.Bucket,
			Region:          s.S3.Region,
			Endpoint:        s.S3.Endpoint,
			AccessKeyID:     s.S3.AccessKeyID,
			SecretAccessKey: s.S3.SecretAccessKey,
		},
		GCS: storage.GCSConfig{
			Bucket:          s.GCS.Bucket,
			CredentialsFile: s.GCS.CredentialsFile,
		},
	}
}
