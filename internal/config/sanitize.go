package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for logging.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg

	sanitized.Store.Cloudflare.APIToken = maskSecret(sanitized.Store.Cloudflare.APIToken)
	sanitized.Store.S3.SecretAccessKey = maskSecret(sanitized.Store.S3.SecretAccessKey)
	sanitized.Replication.EncryptionKey = maskSecret(sanitized.Replication.EncryptionKey)

	return &sanitized
}

// maskSecret keeps the first and last two characters of long values.
func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
	}
}
