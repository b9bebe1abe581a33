package receiver

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/towerlink-go/internal/config"
	"github.com/yndnr/towerlink-go/internal/core/domain"
	"github.com/yndnr/towerlink-go/internal/infra/tlsroots"
	"github.com/yndnr/towerlink-go/internal/infra/tlsroots/certtest"
	"github.com/yndnr/towerlink-go/internal/replication"
	"github.com/yndnr/towerlink-go/internal/sender"
	"github.com/yndnr/towerlink-go/internal/storage"
	"github.com/yndnr/towerlink-go/internal/telemetry/metric"
	"github.com/yndnr/towerlink-go/internal/transport"
	"github.com/yndnr/towerlink-go/pkg/crypto/adaptive"
)

var discard = slog.New(slog.DiscardHandler)

// startSender runs a sender for tower and returns its address and cert.
func startSender(t *testing.T, tower string) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Sender.ListenAddr = "127.0.0.1:0"
	cfg.Sender.CertFile, cfg.Sender.KeyFile = certtest.WriteKeyPair(t, dir, "sender", certtest.SelfSigned(t))
	cfg.Sender.TowerFile = filepath.Join(dir, "tower.bin")
	if err := os.WriteFile(cfg.Sender.TowerFile, []byte(tower), 0o600); err != nil {
		t.Fatal(err)
	}

	s := sender.New(cfg, sender.WithLogger(discard))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-s.Ready():
	case err := <-done:
		t.Fatalf("sender exited: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("sender not ready")
	}
	return s.Addr(), cfg
}

// deadAddr returns a loopback UDP address nobody listens on.
func deadAddr(t *testing.T) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := pc.LocalAddr().String()
	pc.Close()
	return addr
}

func receiverConfig(t *testing.T, senderAddr string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Receiver.SenderAddr = senderAddr
	cfg.Receiver.OutputPath = filepath.Join(t.TempDir(), "tower.bin")
	cfg.Receiver.DialTimeout = 2 * time.Second
	cfg.Receiver.RetryInterval = 50 * time.Millisecond
	cfg.Transport.HandshakeTimeout = time.Second
	return cfg
}

func withStore(r *Receiver, store storage.Store) {
	r.openStore = func(context.Context, storage.Config, *slog.Logger) (storage.Store, error) {
		return store, nil
	}
}

// primed returns a memory store holding blob replicated at the given time.
func primed(t *testing.T, blob string, at time.Time, opts ...replication.Option) *storage.MemoryStore {
	t.Helper()
	src := filepath.Join(t.TempDir(), "src.bin")
	if err := os.WriteFile(src, []byte(blob), 0o600); err != nil {
		t.Fatal(err)
	}
	store := storage.NewMemoryStore()
	opts = append(opts,
		replication.WithLogger(discard),
		replication.WithClock(func() time.Time { return at }))
	sched := replication.New(store, replication.Config{SourcePath: src}, opts...)
	if err := sched.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	return store
}

func readOutput(t *testing.T, cfg *config.Config) string {
	t.Helper()
	got, err := os.ReadFile(cfg.Receiver.OutputPath)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	return string(got)
}

func TestReceiver_PushWithoutStore(t *testing.T) {
	addr, _ := startSender(t, "0123456789")
	cfg := receiverConfig(t, addr)
	metrics := metric.NewRegistry()

	err := New(cfg, WithLogger(discard), WithMetrics(metrics)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := readOutput(t, cfg); got != "0123456789" {
		t.Errorf("output = %q", got)
	}
	if v := testutil.ToFloat64(metrics.ArbitrationWins.WithLabelValues("push")); v != 1 {
		t.Errorf("push wins = %v, want 1", v)
	}
}

func TestReceiver_FallbackWhenSenderDown(t *testing.T) {
	cfg := receiverConfig(t, deadAddr(t))
	cfg.Store.Backend = storage.BackendMemory

	r := New(cfg, WithLogger(discard))
	withStore(r, primed(t, "from-store", time.Now()))

	start := time.Now()
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := readOutput(t, cfg); got != "from-store" {
		t.Errorf("output = %q", got)
	}
	// The fallback commit stops the dial loop before its budget.
	if elapsed := time.Since(start); elapsed > cfg.Receiver.DialTimeout+time.Second {
		t.Errorf("Run() took %v", elapsed)
	}
}

func TestReceiver_BothPathsExactlyOneWrite(t *testing.T) {
	addr, _ := startSender(t, "fresh-from-sender")
	cfg := receiverConfig(t, addr)
	cfg.Store.Backend = storage.BackendMemory
	metrics := metric.NewRegistry()

	r := New(cfg, WithLogger(discard), WithMetrics(metrics))
	withStore(r, primed(t, "fresh-from-store", time.Now()))

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := readOutput(t, cfg)
	if got != "fresh-from-sender" && got != "fresh-from-store" {
		t.Errorf("output = %q", got)
	}
	wins := testutil.ToFloat64(metrics.ArbitrationWins.WithLabelValues("push")) +
		testutil.ToFloat64(metrics.ArbitrationWins.WithLabelValues("fallback"))
	if wins != 1 {
		t.Errorf("arbitration wins = %v, want exactly 1", wins)
	}
}

func TestReceiver_StaleStoreAndNoSender(t *testing.T) {
	cfg := receiverConfig(t, deadAddr(t))
	cfg.Receiver.DialTimeout = 300 * time.Millisecond
	cfg.Store.Backend = storage.BackendMemory

	r := New(cfg, WithLogger(discard))
	withStore(r, primed(t, "old", time.Now().Add(-400*time.Second)))

	err := r.Run(context.Background())
	if !errors.Is(err, domain.ErrNoSourceAvailable) {
		t.Fatalf("Run() error = %v, want ErrNoSourceAvailable", err)
	}
	if !errors.Is(err, domain.ErrStaleData) {
		t.Errorf("error should carry the fallback's StaleData: %v", err)
	}
	if _, statErr := os.Stat(cfg.Receiver.OutputPath); !os.IsNotExist(statErr) {
		t.Errorf("output should be absent, stat error = %v", statErr)
	}
}

func TestReceiver_NoSourceAvailable(t *testing.T) {
	cfg := receiverConfig(t, deadAddr(t))
	cfg.Receiver.DialTimeout = 300 * time.Millisecond

	err := New(cfg, WithLogger(discard)).Run(context.Background())
	if !errors.Is(err, domain.ErrNoSourceAvailable) {
		t.Fatalf("Run() error = %v, want ErrNoSourceAvailable", err)
	}
	if !errors.Is(err, domain.ErrStoreUnreachable) {
		t.Errorf("error should report the missing store: %v", err)
	}
}

func TestReceiver_PinnedTrust(t *testing.T) {
	addr, senderCfg := startSender(t, "pinned")
	pair, err := tlsroots.ReadCertificates(senderCfg.Sender.CertFile)
	if err != nil {
		t.Fatal(err)
	}
	good := tlsroots.FingerprintOf(pair[0]).String()
	other := tlsroots.FingerprintOf(certtest.SelfSigned(t).Leaf).String()

	tests := []struct {
		name    string
		pin     string
		wantErr error
	}{
		{"matching pin", good, nil},
		{"mismatched pin", other, domain.ErrHandshakeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := receiverConfig(t, addr)
			cfg.Transport.Trust = transport.TrustPinned
			cfg.Transport.Pin = tt.pin

			start := time.Now()
			err := New(cfg, WithLogger(discard)).Run(context.Background())
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Run() error = %v", err)
				}
				if got := readOutput(t, cfg); got != "pinned" {
					t.Errorf("output = %q", got)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			// Rejected certificates are not retried until the budget runs out.
			if elapsed := time.Since(start); elapsed >= cfg.Receiver.DialTimeout {
				t.Errorf("Run() took %v, handshake rejection should not be retried", elapsed)
			}
		})
	}
}

func TestReceiver_BadTrustConfig(t *testing.T) {
	cfg := receiverConfig(t, "127.0.0.1:1")
	cfg.Transport.Trust = transport.TrustPinned
	cfg.Transport.Pin = "not-a-fingerprint"

	err := New(cfg, WithLogger(discard)).Run(context.Background())
	if err == nil || errors.Is(err, domain.ErrNoSourceAvailable) {
		t.Fatalf("Run() error = %v, want a setup error", err)
	}
}

func TestReceiver_EncryptedFallback(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	c, err := adaptive.New(key)
	if err != nil {
		t.Fatal(err)
	}

	cfg := receiverConfig(t, deadAddr(t))
	cfg.Store.Backend = storage.BackendMemory
	cfg.Replication.EncryptionKey = hex.EncodeToString(key)

	r := New(cfg, WithLogger(discard))
	withStore(r, primed(t, "sealed-tower", time.Now(), replication.WithCipher(c)))
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := readOutput(t, cfg); got != "sealed-tower" {
		t.Errorf("output = %q", got)
	}
}

func TestReceiver_SharedRegistry(t *testing.T) {
	metrics := metric.NewRegistry()
	cfg := receiverConfig(t, deadAddr(t))
	cfg.Receiver.DialTimeout = 200 * time.Millisecond

	for i := 0; i < 2; i++ {
		err := New(cfg, WithLogger(discard), WithMetrics(metrics)).Run(context.Background())
		if !errors.Is(err, domain.ErrNoSourceAvailable) {
			t.Fatalf("Run() #%d error = %v, want ErrNoSourceAvailable", i+1, err)
		}
	}
}
