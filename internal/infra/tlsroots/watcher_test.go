package tlsroots

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/towerlink-go/internal/infra/tlsroots/certtest"
)

func TestNewWatcher(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := certtest.WriteKeyPair(t, dir, "server", certtest.SelfSigned(t))

	w, err := NewWatcher(certFile, keyFile)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	cert, err := w.GetCertificate(nil)
	if err != nil {
		t.Fatalf("GetCertificate() error = %v", err)
	}
	if cert == nil || len(cert.Certificate) == 0 {
		t.Fatal("GetCertificate() returned no certificate")
	}
}

func TestNewWatcher_InvalidFiles(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "server.crt")
	keyFile := filepath.Join(dir, "server.key")

	if _, err := NewWatcher(certFile, keyFile); err == nil {
		t.Error("NewWatcher() expected error for missing files")
	}

	if err := os.WriteFile(certFile, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewWatcher(certFile, keyFile); err == nil {
		t.Error("NewWatcher() expected error for invalid files")
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := certtest.WriteKeyPair(t, dir, "server", certtest.SelfSigned(t))

	w, err := NewWatcher(certFile, keyFile)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestWatcher_ReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	first := certtest.SelfSigned(t)
	certFile, keyFile := certtest.WriteKeyPair(t, dir, "server", first)

	w, err := NewWatcher(certFile, keyFile, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.settle = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)

	second := certtest.SelfSigned(t)
	certtest.WriteKeyPair(t, dir, "server", second)

	want := FingerprintDER(second.Certificate[0])
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if FingerprintDER(w.Certificate().Certificate[0]).Equal(want) {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("certificate was not reloaded")
}

func TestWatcher_Options(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := certtest.WriteKeyPair(t, dir, "server", certtest.SelfSigned(t))

	w, err := NewWatcher(certFile, keyFile, WithDebounce(200*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if w.debounce != 200*time.Millisecond {
		t.Errorf("WithDebounce() option not applied, got %v", w.debounce)
	}
}
