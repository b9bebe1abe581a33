package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"

	"github.com/quic-go/quic-go"

	"github.com/yndnr/towerlink-go/internal/core/domain"
)

// Dial connects to a listener and verifies it with policy.
//
// Failures are reported as domain.ErrUnreachable, domain.ErrHandshakeFailed
// or domain.ErrTimeout. Dial never retries.
func Dial(ctx context.Context, addr string, policy TrustPolicy, opts ...Option) (*Connection, error) {
	o := buildOptions(opts)

	serverName := o.serverName
	if serverName == "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, domain.ErrUnreachable.WithDetails(addr).Wrap(err)
		}
		serverName = host
	}

	conn, err := quic.DialAddr(ctx, addr, clientTLSConfig(policy, serverName, o.alpn), o.quicConfig())
	if err != nil {
		return nil, classifyDialError(ctx, addr, err)
	}

	return newConnection(conn), nil
}

// clientTLSConfig installs policy as the only certificate check. The
// standard verifier is disabled so that policy alone decides.
func clientTLSConfig(policy TrustPolicy, serverName, alpn string) *tls.Config {
	return &tls.Config{
		ServerName:         serverName,
		NextProtos:         []string{alpn},
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: true,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			chain := make([]*x509.Certificate, 0, len(rawCerts))
			for _, raw := range rawCerts {
				cert, err := x509.ParseCertificate(raw)
				if err != nil {
					return fmt.Errorf("transport: parse peer certificate: %w", err)
				}
				chain = append(chain, cert)
			}
			if err := policy.Verify(chain, serverName); err != nil {
				return fmt.Errorf("transport: %s policy rejected peer: %w", policy.Name(), err)
			}
			return nil
		},
	}
}

func classifyDialError(ctx context.Context, addr string, err error) error {
	if ctx.Err() != nil {
		return classifyContext(ctx)
	}

	var (
		handshakeTimeout *quic.HandshakeTimeoutError
		idleTimeout      *quic.IdleTimeoutError
		transportErr     *quic.TransportError
		netErr           net.Error
	)
	switch {
	case errors.As(err, &handshakeTimeout), errors.As(err, &idleTimeout):
		return domain.ErrTimeout.WithDetails(addr).Wrap(err)
	case errors.As(err, &transportErr) && transportErr.ErrorCode.IsCryptoError():
		return domain.ErrHandshakeFailed.WithDetails(addr).Wrap(err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return domain.ErrTimeout.WithDetails(addr).Wrap(err)
	default:
		return domain.ErrUnreachable.WithDetails(addr).Wrap(err)
	}
}

func classifyContext(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrTimeout.Wrap(ctx.Err())
	}
	return ctx.Err()
}
