package transport

import (
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/yndnr/towerlink-go/internal/infra/tlsroots"
)

// Trust modes accepted by NewPolicy.
const (
	TrustInsecure = "insecure"
	TrustPinned   = "pinned"
	TrustCA       = "ca"
)

// ErrPinMismatch is returned when the peer's leaf certificate does not match the pin.
var ErrPinMismatch = errors.New("transport: certificate does not match pin")

// TrustPolicy decides whether a peer's certificate chain is acceptable.
// The chain is leaf first. Implementations must be safe for concurrent use
// and free of side effects.
type TrustPolicy interface {
	Name() string
	Verify(chain []*x509.Certificate, serverName string) error
}

// AcceptAny accepts every certificate. The channel stays encrypted but the
// peer is unauthenticated, so it is only appropriate on isolated networks
// where the endpoint address itself is the secret.
type AcceptAny struct{}

// Name implements TrustPolicy.
func (AcceptAny) Name() string { return TrustInsecure }

// Verify implements TrustPolicy.
func (AcceptAny) Verify([]*x509.Certificate, string) error { return nil }

// PinnedCertificate accepts only a leaf whose SHA-256 fingerprint matches.
type PinnedCertificate struct {
	pin tlsroots.Fingerprint
}

// NewPinnedCertificate returns a policy pinned to fp.
func NewPinnedCertificate(fp tlsroots.Fingerprint) *PinnedCertificate {
	return &PinnedCertificate{pin: fp}
}

// Name implements TrustPolicy.
func (p *PinnedCertificate) Name() string { return TrustPinned }

// Verify implements TrustPolicy.
func (p *PinnedCertificate) Verify(chain []*x509.Certificate, _ string) error {
	if len(chain) == 0 {
		return tlsroots.ErrEmptyChain
	}
	got := tlsroots.FingerprintOf(chain[0])
	if !got.Equal(p.pin) {
		return fmt.Errorf("%w: got %s", ErrPinMismatch, got)
	}
	return nil
}

// CAVerified accepts chains that verify against a root pool and are valid
// for the expected server name.
type CAVerified struct {
	roots *tlsroots.Pool
	now   func() time.Time
}

// NewCAVerified returns a policy backed by roots.
func NewCAVerified(roots *tlsroots.Pool) *CAVerified {
	return &CAVerified{roots: roots, now: time.Now}
}

// Name implements TrustPolicy.
func (p *CAVerified) Name() string { return TrustCA }

// Verify implements TrustPolicy.
func (p *CAVerified) Verify(chain []*x509.Certificate, serverName string) error {
	return p.roots.VerifyChain(chain, serverName, p.now())
}

// NewPolicy builds the policy named by mode. pin is a fingerprint or the
// path of a PEM certificate; caPath is a PEM file or directory.
func NewPolicy(mode, pin, caPath string) (TrustPolicy, error) {
	switch mode {
	case TrustInsecure:
		return AcceptAny{}, nil
	case TrustPinned:
		fp, err := tlsroots.LoadPin(pin)
		if err != nil {
			return nil, fmt.Errorf("transport: pinned policy: %w", err)
		}
		return NewPinnedCertificate(fp), nil
	case TrustCA:
		pool, err := tlsroots.LoadPool(caPath)
		if err != nil {
			return nil, fmt.Errorf("transport: ca policy: %w", err)
		}
		return NewCAVerified(pool), nil
	default:
		return nil, fmt.Errorf("transport: unknown trust mode %q", mode)
	}
}
