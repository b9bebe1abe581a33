package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/yndnr/towerlink-go/internal/storage"
	"github.com/yndnr/towerlink-go/internal/telemetry/logger"
	"github.com/yndnr/towerlink-go/internal/transport"
	"github.com/yndnr/towerlink-go/pkg/crypto/adaptive"
)

// VerifySender validates the configuration for the sender role.
// Every problem found is reported, not only the first.
func VerifySender(cfg *Config) error {
	var result *multierror.Error

	result = multierror.Append(result, verifyLog(&cfg.Log)...)
	result = multierror.Append(result, verifyAddr("sender.listen_addr", cfg.Sender.ListenAddr)...)
	result = multierror.Append(result, verifyFile("sender.cert_file", cfg.Sender.CertFile)...)
	result = multierror.Append(result, verifyFile("sender.key_file", cfg.Sender.KeyFile)...)
	if cfg.Sender.TowerFile == "" {
		result = multierror.Append(result, fmt.Errorf("sender.tower_file is required"))
	}
	if cfg.Push.AckTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("push.ack_timeout must be positive"))
	}
	if cfg.Transport.HandshakeTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("transport.handshake_timeout must be positive"))
	}
	result = multierror.Append(result, verifyStore(&cfg.Store)...)
	if cfg.Store.Backend != storage.BackendNone && cfg.Replication.Interval <= 0 {
		result = multierror.Append(result, fmt.Errorf("replication.interval must be positive"))
	}
	result = multierror.Append(result, verifyKey(cfg.Replication.EncryptionKey)...)

	return result.ErrorOrNil()
}

// VerifyReceiver validates the configuration for the receiver role.
func VerifyReceiver(cfg *Config) error {
	var result *multierror.Error

	result = multierror.Append(result, verifyLog(&cfg.Log)...)
	result = multierror.Append(result, verifyAddr("receiver.sender_addr", cfg.Receiver.SenderAddr)...)

	if cfg.Receiver.OutputPath == "" {
		result = multierror.Append(result, fmt.Errorf("receiver.output_path is required"))
	} else if dir := filepath.Dir(cfg.Receiver.OutputPath); !isDir(dir) {
		result = multierror.Append(result, fmt.Errorf("receiver.output_path: directory %s does not exist", dir))
	}

	if cfg.Receiver.DialTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("receiver.dial_timeout must be positive"))
	}
	if cfg.Receiver.StalenessBound <= 0 {
		result = multierror.Append(result, fmt.Errorf("receiver.staleness_bound must be positive"))
	}
	if cfg.Push.MaxBlobSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("push.max_blob_size must be positive"))
	}

	result = multierror.Append(result, verifyTrust(&cfg.Transport)...)
	result = multierror.Append(result, verifyStore(&cfg.Store)...)
	result = multierror.Append(result, verifyKey(cfg.Replication.EncryptionKey)...)

	return result.ErrorOrNil()
}

func verifyLog(cfg *LogSection) []error {
	var errs []error
	if !logger.ValidLevel(cfg.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level))
	}
	switch strings.ToLower(cfg.Format) {
	case "", "json", "text", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not json or text", cfg.Format))
	}
	return errs
}

func verifyAddr(name, addr string) []error {
	if addr == "" {
		return []error{fmt.Errorf("%s is required", name)}
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return []error{fmt.Errorf("%s: %w", name, err)}
	}
	return nil
}

func verifyFile(name, path string) []error {
	if path == "" {
		return []error{fmt.Errorf("%s is required", name)}
	}
	if _, err := os.Stat(path); err != nil {
		return []error{fmt.Errorf("%s: %w", name, err)}
	}
	return nil
}

func verifyTrust(cfg *TransportSection) []error {
	switch cfg.Trust {
	case transport.TrustInsecure:
	case transport.TrustPinned:
		if cfg.Pin == "" {
			return []error{fmt.Errorf("transport.pin is required when transport.trust is %s", transport.TrustPinned)}
		}
	case transport.TrustCA:
		return verifyFile("transport.ca_file", cfg.CAFile)
	default:
		return []error{fmt.Errorf("transport.trust %q is not one of insecure, pinned, ca", cfg.Trust)}
	}
	return nil
}

func verifyStore(cfg *StoreSection) []error {
	var errs []error
	required := func(name, value string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("store.%s is required for backend %s", name, cfg.Backend))
		}
	}

	switch strings.ToLower(cfg.Backend) {
	case storage.BackendNone, "none", storage.BackendMemory:
	case storage.BackendCloudflare:
		required("cloudflare.api_token", cfg.Cloudflare.APIToken)
		required("cloudflare.account_id", cfg.Cloudflare.AccountID)
		required("cloudflare.namespace_id", cfg.Cloudflare.NamespaceID)
		if ttl := cfg.Cloudflare.TTL; ttl < 0 || (ttl > 0 && ttl < storage.MinCloudflareTTL) {
			errs = append(errs, fmt.Errorf("store.cloudflare.ttl must be 0 or at least %s", storage.MinCloudflareTTL))
		}
	case storage.BackendBadger:
		required("badger.dir", cfg.Badger.Dir)
		if cfg.Badger.GCThreshold < 0 || cfg.Badger.GCThreshold >= 1 {
			errs = append(errs, fmt.Errorf("store.badger.gc_threshold must be in [0, 1)"))
		}
	case storage.BackendS3:
		required("s3.bucket", cfg.S3.Bucket)
		if (cfg.S3.AccessKeyID == "") != (cfg.S3.SecretAccessKey == "") {
			errs = append(errs, fmt.Errorf("store.s3.access_key_id and store.s3.secret_access_key must be set together"))
		}
	case storage.BackendGCS:
		required("gcs.bucket", cfg.GCS.Bucket)
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of cloudflare, badger, s3, gcs, memory", cfg.Backend))
	}

	if cfg.Timeout < 0 {
		errs = append(errs, fmt.Errorf("store.timeout must not be negative"))
	}
	return errs
}

func verifyKey(key string) []error {
	if key == "" {
		return nil
	}
	if _, err := adaptive.ParseKey(key); err != nil {
		return []error{fmt.Errorf("replication.encryption_key: %w", err)}
	}
	return nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
