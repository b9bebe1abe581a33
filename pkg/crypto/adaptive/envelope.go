package adaptive

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const envelopeMagic = "TLE1"

// Algorithm tags stored in the envelope header.
const (
	tagAESGCM   byte = 1
	tagChaCha20 byte = 2
)

// ErrEnvelope is returned for data that is not a sealed envelope.
var ErrEnvelope = errors.New("adaptive: not a sealed envelope")

// Seal encrypts plaintext with c and prefixes the result with a header
// naming the algorithm.
func Seal(c Cipher, plaintext, additionalData []byte) ([]byte, error) {
	var tag byte
	switch c.Type() {
	case CipherAESGCM:
		tag = tagAESGCM
	case CipherChaCha20:
		tag = tagChaCha20
	default:
		return nil, fmt.Errorf("adaptive: cannot seal with %q", c.Type())
	}

	body, err := c.Encrypt(plaintext, additionalData)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(envelopeMagic)+1+len(body))
	out = append(out, envelopeMagic...)
	out = append(out, tag)
	return append(out, body...), nil
}

// Open decrypts an envelope produced by Seal with the same key and
// additional data, whichever algorithm sealed it.
func Open(key, sealed, additionalData []byte) ([]byte, error) {
	header := len(envelopeMagic) + 1
	if len(sealed) < header || string(sealed[:len(envelopeMagic)]) != envelopeMagic {
		return nil, ErrEnvelope
	}

	var typ CipherType
	switch sealed[len(envelopeMagic)] {
	case tagAESGCM:
		typ = CipherAESGCM
	case tagChaCha20:
		typ = CipherChaCha20
	default:
		return nil, fmt.Errorf("%w: unknown algorithm tag %d", ErrEnvelope, sealed[len(envelopeMagic)])
	}

	c, err := NewWithType(key, typ)
	if err != nil {
		return nil, err
	}
	return c.Decrypt(sealed[header:], additionalData)
}

// IsSealed reports whether data carries an envelope header.
func IsSealed(data []byte) bool {
	return len(data) > len(envelopeMagic) && string(data[:len(envelopeMagic)]) == envelopeMagic
}

// ParseKey decodes a KeySize key given as hex or standard base64.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)

	if key, err := hex.DecodeString(s); err == nil && len(key) == KeySize {
		return key, nil
	}
	if key, err := base64.StdEncoding.DecodeString(s); err == nil && len(key) == KeySize {
		return key, nil
	}
	return nil, fmt.Errorf("%w (hex or base64)", ErrKeySize)
}
