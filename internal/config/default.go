package config

import "time"

// Default configuration values.
const (
	DefaultListenAddr = "0.0.0.0:4433"
	DefaultSenderAddr = "127.0.0.1:4433"

	DefaultTrust            = "insecure"
	DefaultALPN             = "quinn-tower"
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultIdleTimeout      = 30 * time.Second

	DefaultDialTimeout    = 10 * time.Second
	DefaultRetryInterval  = 500 * time.Millisecond
	DefaultStalenessBound = 300 * time.Second

	DefaultAckTimeout    = 10 * time.Second
	DefaultStreamTimeout = 30 * time.Second
	DefaultLinger        = 2 * time.Second
	DefaultMaxBlobSize   = 64 << 20

	DefaultStoreTimeout        = 10 * time.Second
	DefaultCloudflareTTL       = 300 * time.Second
	DefaultReplicationInterval = 30 * time.Second

	DefaultBadgerGCInterval  = 10 * time.Minute
	DefaultBadgerGCThreshold = 0.5

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Transport: TransportSection{
			Trust:            DefaultTrust,
			ALPN:             DefaultALPN,
			HandshakeTimeout: DefaultHandshakeTimeout,
			IdleTimeout:      DefaultIdleTimeout,
		},
		Sender: SenderSection{
			ListenAddr: DefaultListenAddr,
		},
		Receiver: ReceiverSection{
			SenderAddr:     DefaultSenderAddr,
			DialTimeout:    DefaultDialTimeout,
			RetryInterval:  DefaultRetryInterval,
			StalenessBound: DefaultStalenessBound,
		},
		Push: PushSection{
			AckTimeout:    DefaultAckTimeout,
			StreamTimeout: DefaultStreamTimeout,
			Linger:        DefaultLinger,
			MaxBlobSize:   DefaultMaxBlobSize,
		},
		Store: StoreSection{
			Timeout: DefaultStoreTimeout,
			Cloudflare: CloudflareConfig{
				TTL: DefaultCloudflareTTL,
			},
			Badger: BadgerConfig{
				SyncWrites:  true,
				GCInterval:  DefaultBadgerGCInterval,
				GCThreshold: DefaultBadgerGCThreshold,
			},
		},
		Replication: ReplicationSection{
			Interval: DefaultReplicationInterval,
		},
	}
}
