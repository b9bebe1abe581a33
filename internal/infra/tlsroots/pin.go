package tlsroots

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Fingerprint is the SHA-256 digest of a certificate's DER encoding.
type Fingerprint [sha256.Size]byte

// ErrInvalidFingerprint is returned when a pin cannot be parsed.
var ErrInvalidFingerprint = errors.New("tlsroots: invalid fingerprint")

// FingerprintOf returns the fingerprint of cert.
func FingerprintOf(cert *x509.Certificate) Fingerprint {
	return sha256.Sum256(cert.Raw)
}

// FingerprintDER returns the fingerprint of a DER-encoded certificate.
func FingerprintDER(der []byte) Fingerprint {
	return sha256.Sum256(der)
}

// String renders the fingerprint as lowercase hex.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Equal reports whether the two fingerprints match.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return bytes.Equal(f[:], other[:])
}

// ParseFingerprint accepts hex with optional ':' separators and an optional
// "sha256:" prefix, as printed by openssl and most tooling.
func ParseFingerprint(s string) (Fingerprint, error) {
	var f Fingerprint

	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "sha256:")
	s = strings.ReplaceAll(s, ":", "")

	raw, err := hex.DecodeString(s)
	if err != nil {
		return f, fmt.Errorf("%w: %v", ErrInvalidFingerprint, err)
	}
	if len(raw) != len(f) {
		return f, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidFingerprint, len(f), len(raw))
	}
	copy(f[:], raw)
	return f, nil
}

// LoadPin resolves a pin from either a literal fingerprint or the path of a
// PEM certificate whose leaf is pinned.
func LoadPin(value string) (Fingerprint, error) {
	if f, err := ParseFingerprint(value); err == nil {
		return f, nil
	}

	if _, err := os.Stat(value); err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %q is neither a fingerprint nor a readable file", ErrInvalidFingerprint, value)
	}
	certs, err := ReadCertificates(value)
	if err != nil {
		return Fingerprint{}, err
	}
	return FingerprintOf(certs[0]), nil
}
