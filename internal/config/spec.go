package config

import "time"

// Config is the root configuration shared by both roles.
type Config struct {
	Log         LogSection         `koanf:"log"`
	Transport   TransportSection   `koanf:"transport"`
	Sender      SenderSection      `koanf:"sender"`
	Receiver    ReceiverSection    `koanf:"receiver"`
	Push        PushSection        `koanf:"push"`
	Store       StoreSection       `koanf:"store"`
	Replication ReplicationSection `koanf:"replication"`
	Metrics     MetricsSection     `koanf:"metrics"`
}

// LogSection configures logging.
type LogSection struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	AddSource bool   `koanf:"add_source"`
}

// TransportSection configures the QUIC channel.
type TransportSection struct {
	// Trust is the receiver's certificate policy: insecure, pinned or ca.
	Trust string `koanf:"trust"`
	// Pin is a SHA-256 fingerprint or a PEM file, used when Trust is pinned.
	Pin string `koanf:"pin"`
	// CAFile is a PEM bundle or directory, used when Trust is ca.
	CAFile string `koanf:"ca_file"`

	ALPN             string        `koanf:"alpn"`
	ServerName       string        `koanf:"server_name"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
	IdleTimeout      time.Duration `koanf:"idle_timeout"`
}

// SenderSection configures the role holding the tower file.
type SenderSection struct {
	ListenAddr string `koanf:"listen_addr"`
	CertFile   string `koanf:"cert_file"`
	KeyFile    string `koanf:"key_file"`
	TowerFile  string `koanf:"tower_file"`

	// WatchCerts reloads the certificate pair when either file changes.
	WatchCerts bool `koanf:"watch_certs"`
	// WatchConfig applies log level changes from the config file at runtime.
	WatchConfig bool `koanf:"watch_config"`
}

// ReceiverSection configures the standby.
type ReceiverSection struct {
	SenderAddr string `koanf:"sender_addr"`
	OutputPath string `koanf:"output_path"`

	// DialTimeout is the total budget for reaching the sender, retries included.
	DialTimeout time.Duration `koanf:"dial_timeout"`
	// RetryInterval paces dial attempts within DialTimeout.
	RetryInterval  time.Duration `koanf:"retry_interval"`
	StalenessBound time.Duration `koanf:"staleness_bound"`
}

// PushSection tunes the push protocol.
type PushSection struct {
	AckTimeout    time.Duration `koanf:"ack_timeout"`
	StreamTimeout time.Duration `koanf:"stream_timeout"`
	Linger        time.Duration `koanf:"linger"`
	MaxBlobSize   int64         `koanf:"max_blob_size"`
}

// StoreSection selects the durable store backend.
type StoreSection struct {
	// Backend is one of cloudflare, badger, s3, gcs, memory, or empty to
	// disable the fallback copy.
	Backend string        `koanf:"backend"`
	Prefix  string        `koanf:"prefix"`
	Timeout time.Duration `koanf:"timeout"`

	Cloudflare CloudflareConfig `koanf:"cloudflare"`
	Badger     BadgerConfig     `koanf:"badger"`
	S3         S3Config         `koanf:"s3"`
	GCS        GCSConfig        `koanf:"gcs"`
}

// CloudflareConfig configures Workers KV.
type CloudflareConfig struct {
	APIToken    string        `koanf:"api_token"`
	AccountID   string        `koanf:"account_id"`
	NamespaceID string        `koanf:"namespace_id"`
	BaseURL     string        `koanf:"base_url"`
	TTL         time.Duration `koanf:"ttl"`
}

// BadgerConfig configures the embedded store.
type BadgerConfig struct {
	Dir         string        `koanf:"dir"`
	SyncWrites  bool          `koanf:"sync_writes"`
	GCInterval  time.Duration `koanf:"gc_interval"`
	GCThreshold float64       `koanf:"gc_threshold"`
}

// S3Config configures an S3 or S3-compatible bucket.
type S3Config struct {
	Bucket          string `koanf:"bucket"`
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
}

// GCSConfig configures a Cloud Storage bucket.
type GCSConfig struct {
	Bucket          string `koanf:"bucket"`
	CredentialsFile string `koanf:"credentials_file"`
}

// ReplicationSection configures the sender's replication scheduler.
type ReplicationSection struct {
	Interval time.Duration `koanf:"interval"`
	// EncryptionKey seals blobs before they reach the store. Hex or base64,
	// 32 bytes. Empty stores plaintext.
	EncryptionKey string `koanf:"encryption_key"`
}

// MetricsSection configures the Prometheus endpoint. Empty Addr disables it.
type MetricsSection struct {
	Addr string `koanf:"addr"`
}
