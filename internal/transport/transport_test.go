package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/yndnr/towerlink-go/internal/core/domain"
	"github.com/yndnr/towerlink-go/internal/infra/tlsroots"
	"github.com/yndnr/towerlink-go/internal/infra/tlsroots/certtest"
)

func listen(t *testing.T, cert tls.Certificate, opts ...Option) *Acceptor {
	t.Helper()

	acc, err := Listen("127.0.0.1:0", StaticCredentials(cert), opts...)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { _ = acc.Close() })
	return acc
}

// serveOnce resolves inbound attempts until one succeeds, then sends
// payload on a server-opened stream.
func serveOnce(ctx context.Context, acc *Acceptor, payload []byte) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		for {
			in, err := acc.Accept(ctx)
			if err != nil {
				errCh <- err
				return
			}
			conn, err := in.Resolve(ctx)
			if err != nil {
				continue
			}
			s, err := conn.OpenStream(ctx)
			if err != nil {
				errCh <- err
				return
			}
			if _, err := s.Write(payload); err != nil {
				errCh <- err
				return
			}
			errCh <- s.CloseWrite()
			<-conn.Done()
			return
		}
	}()
	return errCh
}

func TestListenDial_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	acc := listen(t, certtest.SelfSigned(t))
	serverErr := serveOnce(ctx, acc, []byte("hello tower"))

	conn, err := Dial(ctx, acc.Addr().String(), AcceptAny{})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if got := conn.NegotiatedProtocol(); got != DefaultALPN {
		t.Errorf("NegotiatedProtocol() = %q, want %q", got, DefaultALPN)
	}
	if len(conn.PeerCertificates()) == 0 {
		t.Error("PeerCertificates() is empty")
	}

	s, err := conn.AcceptStream(ctx)
	if err != nil {
		t.Fatalf("AcceptStream() error = %v", err)
	}
	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != "hello tower" {
		t.Errorf("payload = %q, want %q", got, "hello tower")
	}
	if err := <-serverErr; err != nil {
		t.Errorf("server error = %v", err)
	}
}

func TestDial_TrustPolicies(t *testing.T) {
	ca := certtest.NewAuthority(t, "tower-ca")
	serverCert := ca.Issue(t)

	roots := tlsroots.NewEmptyPool()
	roots.AddCert(ca.Cert)

	otherRoots := tlsroots.NewEmptyPool()
	otherRoots.AddCert(certtest.NewAuthority(t, "other-ca").Cert)

	tests := []struct {
		name    string
		policy  TrustPolicy
		wantErr error
	}{
		{"accept any", AcceptAny{}, nil},
		{"pinned match", NewPinnedCertificate(tlsroots.FingerprintOf(serverCert.Leaf)), nil},
		{"pinned mismatch", NewPinnedCertificate(tlsroots.FingerprintOf(ca.Cert)), domain.ErrHandshakeFailed},
		{"ca verified", NewCAVerified(roots), nil},
		{"ca unknown", NewCAVerified(otherRoots), domain.ErrHandshakeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			acc := listen(t, serverCert)
			go func() {
				for {
					in, err := acc.Accept(ctx)
					if err != nil {
						return
					}
					if conn, err := in.Resolve(ctx); err == nil {
						<-conn.Done()
					}
				}
			}()

			conn, err := Dial(ctx, acc.Addr().String(), tt.policy)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Dial() error = %v", err)
				}
				_ = conn.Close()
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Dial() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDial_ALPNMismatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	acc := listen(t, certtest.SelfSigned(t), WithALPN("h3"))

	_, err := Dial(ctx, acc.Addr().String(), AcceptAny{})
	if !errors.Is(err, domain.ErrHandshakeFailed) {
		t.Fatalf("Dial() error = %v, want ErrHandshakeFailed", err)
	}
}

func TestDial_ContextDeadline(t *testing.T) {
	acc := listen(t, certtest.SelfSigned(t))
	addr := acc.Addr().String()
	_ = acc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_, err := Dial(ctx, addr, AcceptAny{})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("Dial() error = %v, want ErrTimeout", err)
	}
}

func TestDial_NoListener(t *testing.T) {
	acc := listen(t, certtest.SelfSigned(t))
	addr := acc.Addr().String()
	_ = acc.Close()

	_, err := Dial(context.Background(), addr, AcceptAny{}, WithHandshakeTimeout(200*time.Millisecond))
	if !errors.Is(err, domain.ErrTimeout) && !errors.Is(err, domain.ErrUnreachable) {
		t.Fatalf("Dial() error = %v, want ErrTimeout or ErrUnreachable", err)
	}
}

func TestDial_BadAddress(t *testing.T) {
	_, err := Dial(context.Background(), "no-port", AcceptAny{})
	if !errors.Is(err, domain.ErrUnreachable) {
		t.Fatalf("Dial() error = %v, want ErrUnreachable", err)
	}
}

func TestListen_BindErrors(t *testing.T) {
	acc := listen(t, certtest.SelfSigned(t))

	t.Run("address in use", func(t *testing.T) {
		_, err := Listen(acc.Addr().String(), StaticCredentials(certtest.SelfSigned(t)))
		if !errors.Is(err, domain.ErrBind) {
			t.Fatalf("Listen() error = %v, want ErrBind", err)
		}
	})

	t.Run("empty credentials", func(t *testing.T) {
		_, err := Listen("127.0.0.1:0", StaticCredentials(tls.Certificate{}))
		if !errors.Is(err, domain.ErrBind) {
			t.Fatalf("Listen() error = %v, want ErrBind", err)
		}
	})

	t.Run("missing key pair", func(t *testing.T) {
		_, err := LoadCredentials("/nonexistent/cert.pem", "/nonexistent/key.pem")
		if !errors.Is(err, domain.ErrBind) {
			t.Fatalf("LoadCredentials() error = %v, want ErrBind", err)
		}
	})
}

func TestAcceptor_SurvivesFailedAttempts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	serverCert := certtest.SelfSigned(t)
	acc := listen(t, serverCert)
	serverErr := serveOnce(ctx, acc, []byte("still here"))

	wrongPin := NewPinnedCertificate(tlsroots.FingerprintOf(certtest.SelfSigned(t).Leaf))
	for i := 0; i < 3; i++ {
		if _, err := Dial(ctx, acc.Addr().String(), wrongPin); err == nil {
			t.Fatal("Dial() with wrong pin succeeded")
		}
	}

	conn, err := Dial(ctx, acc.Addr().String(), AcceptAny{})
	if err != nil {
		t.Fatalf("Dial() after failures error = %v", err)
	}
	defer conn.Close()

	s, err := conn.AcceptStream(ctx)
	if err != nil {
		t.Fatalf("AcceptStream() error = %v", err)
	}
	got, err := io.ReadAll(s)
	if err != nil || string(got) != "still here" {
		t.Fatalf("ReadAll() = %q, %v", got, err)
	}
	if err := <-serverErr; err != nil {
		t.Errorf("server error = %v", err)
	}
}

func TestAcceptor_CloseStopsAccept(t *testing.T) {
	acc := listen(t, certtest.SelfSigned(t))

	done := make(chan error, 1)
	go func() {
		_, err := acc.Accept(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	_ = acc.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Accept() returned nil error after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Accept() did not return after Close")
	}
}
