package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"

	"github.com/quic-go/quic-go"

	"github.com/yndnr/towerlink-go/internal/core/domain"
)

// Credentials supplies the listener certificate for each handshake.
// *tlsroots.Watcher satisfies it.
type Credentials interface {
	GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error)
}

type staticCredentials struct {
	cert *tls.Certificate
}

func (s staticCredentials) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return s.cert, nil
}

// StaticCredentials serves a fixed certificate.
func StaticCredentials(cert tls.Certificate) Credentials {
	return staticCredentials{cert: &cert}
}

// LoadCredentials reads a PEM key pair once. Malformed files yield domain.ErrBind.
func LoadCredentials(certFile, keyFile string) (Credentials, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, domain.ErrBind.WithDetails("load key pair").Wrap(err)
	}
	return StaticCredentials(cert), nil
}

// Acceptor yields inbound connection attempts.
type Acceptor struct {
	ln *quic.EarlyListener
}

// Listen binds addr and starts accepting QUIC connections negotiating the
// configured ALPN. It fails with domain.ErrBind if the address is unusable
// or creds holds no usable certificate.
func Listen(addr string, creds Credentials, opts ...Option) (*Acceptor, error) {
	o := buildOptions(opts)

	cert, err := creds.GetCertificate(&tls.ClientHelloInfo{})
	if err != nil {
		return nil, domain.ErrBind.WithDetails("credentials").Wrap(err)
	}
	if cert == nil || len(cert.Certificate) == 0 {
		return nil, domain.ErrBind.WithDetails("credentials hold no certificate")
	}

	tlsConf := &tls.Config{
		GetCertificate: creds.GetCertificate,
		NextProtos:     []string{o.alpn},
		MinVersion:     tls.VersionTLS13,
	}

	ln, err := quic.ListenAddrEarly(addr, tlsConf, o.quicConfig())
	if err != nil {
		return nil, domain.ErrBind.WithDetails(addr).Wrap(err)
	}

	return &Acceptor{ln: ln}, nil
}

// Addr returns the bound UDP address.
func (a *Acceptor) Addr() net.Addr {
	return a.ln.Addr()
}

// Accept waits for the next inbound attempt. The returned Incoming must be
// resolved to learn whether the handshake succeeded. Accept only fails when
// ctx is done or the acceptor is closed; handshakes that fail before this
// point are dropped by the listener without surfacing here.
func (a *Acceptor) Accept(ctx context.Context) (*Incoming, error) {
	conn, err := a.ln.Accept(ctx)
	if err != nil {
		if errors.Is(err, quic.ErrServerClosed) {
			return nil, fmt.Errorf("transport: %w", net.ErrClosed)
		}
		return nil, err
	}
	return &Incoming{conn: conn}, nil
}

// Close stops accepting. Established connections are not affected.
func (a *Acceptor) Close() error {
	return a.ln.Close()
}

// Incoming is an inbound connection attempt whose handshake may still be
// in flight.
type Incoming struct {
	conn quic.EarlyConnection
}

// RemoteAddr returns the peer address.
func (in *Incoming) RemoteAddr() net.Addr {
	return in.conn.RemoteAddr()
}

// Resolve waits for the handshake to complete.
func (in *Incoming) Resolve(ctx context.Context) (*Connection, error) {
	select {
	case <-in.conn.HandshakeComplete():
		return newConnection(in.conn), nil
	case <-in.conn.Context().Done():
		return nil, domain.ErrHandshakeFailed.Wrap(context.Cause(in.conn.Context()))
	case <-ctx.Done():
		_ = in.conn.CloseWithError(0, "handshake abandoned")
		return nil, classifyContext(ctx)
	}
}
