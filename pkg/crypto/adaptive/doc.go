// Package adaptive seals data at rest with an AEAD picked for the host CPU.
//
// AES-256-GCM is used where the Go runtime has hardware AES support and
// ChaCha20-Poly1305 elsewhere. Sealed envelopes record which algorithm
// produced them, so a reader on different hardware can still open them
// with the same key.
//
// Usage:
//
//	key, err := adaptive.ParseKey(os.Getenv("TOWERLINK_REPLICATION_ENCRYPTION_KEY"))
//	c, err := adaptive.New(key)
//	sealed, err := adaptive.Seal(c, blob, []byte("tower_file"))
//	blob, err = adaptive.Open(key, sealed, []byte("tower_file"))
package adaptive
