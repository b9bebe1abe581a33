package replication

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/towerlink-go/internal/core/domain"
	"github.com/yndnr/towerlink-go/internal/storage"
	"github.com/yndnr/towerlink-go/internal/telemetry/metric"
	"github.com/yndnr/towerlink-go/pkg/crypto/adaptive"
)

var discard = slog.New(slog.DiscardHandler)

// recordingStore wraps a MemoryStore, records the order of writes and can
// fail writes to chosen keys.
type recordingStore struct {
	*storage.MemoryStore

	mu     sync.Mutex
	puts   []string
	failOn map[string]error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: storage.NewMemoryStore(), failOn: map[string]error{}}
}

func (r *recordingStore) Put(ctx context.Context, key string, value []byte) error {
	r.mu.Lock()
	err := r.failOn[key]
	r.puts = append(r.puts, key)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.MemoryStore.Put(ctx, key, value)
}

func (r *recordingStore) putCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.puts)
}

func writeSource(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tower.bin")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunOnce_WritesBlobThenMetadata(t *testing.T) {
	store := newRecordingStore()
	metrics := metric.NewRegistry()
	now := time.Unix(1_750_000_000, 0)

	s := New(store, Config{SourcePath: writeSource(t, "0123456789")},
		WithLogger(discard), WithMetrics(metrics), WithClock(func() time.Time { return now }))

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(store.puts) != 2 || store.puts[0] != storage.KeyTowerFile || store.puts[1] != storage.KeyTowerMetadata {
		t.Fatalf("put order = %v, want [tower_file tower_metadata]", store.puts)
	}

	blob, _ := store.Get(context.Background(), storage.KeyTowerFile)
	if string(blob) != "0123456789" {
		t.Errorf("tower_file = %q", blob)
	}

	raw, _ := store.Get(context.Background(), storage.KeyTowerMetadata)
	meta, err := domain.DecodeMetadata(raw)
	if err != nil {
		t.Fatalf("DecodeMetadata() error = %v", err)
	}
	sum := sha256.Sum256([]byte("0123456789"))
	want := domain.Metadata{Timestamp: uint64(now.Unix()), Size: 10, Checksum: hex.EncodeToString(sum[:])}
	if meta != want {
		t.Errorf("metadata = %+v, want %+v", meta, want)
	}

	if got := testutil.ToFloat64(metrics.ReplicationCycles.WithLabelValues(OutcomeOK)); got != 1 {
		t.Errorf("ok cycles = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ReplicationLastSuccess); got != float64(now.Unix()) {
		t.Errorf("last success = %v, want %d", got, now.Unix())
	}
	if got := s.LastSuccess(); !got.Equal(now) {
		t.Errorf("LastSuccess() = %v, want %v", got, now)
	}
}

func TestRunOnce_Failures(t *testing.T) {
	tests := []struct {
		name        string
		source      func(t *testing.T) string
		failOn      string
		wantOutcome string
		wantPuts    int
	}{
		{
			name:        "source missing",
			source:      func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing") },
			wantOutcome: OutcomeSourceError,
			wantPuts:    0,
		},
		{
			name:        "blob write fails",
			source:      func(t *testing.T) string { return writeSource(t, "abc") },
			failOn:      storage.KeyTowerFile,
			wantOutcome: OutcomeBlobFailed,
			wantPuts:    1,
		},
		{
			name:        "metadata write fails",
			source:      func(t *testing.T) string { return writeSource(t, "abc") },
			failOn:      storage.KeyTowerMetadata,
			wantOutcome: OutcomeMetadataFailed,
			wantPuts:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newRecordingStore()
			if tt.failOn != "" {
				store.failOn[tt.failOn] = domain.ErrStoreWriteFailed
			}
			metrics := metric.NewRegistry()

			s := New(store, Config{SourcePath: tt.source(t)}, WithLogger(discard), WithMetrics(metrics))
			if err := s.RunOnce(context.Background()); err == nil {
				t.Fatal("RunOnce() expected error")
			}

			if store.putCount() != tt.wantPuts {
				t.Errorf("puts = %v, want %d", store.puts, tt.wantPuts)
			}
			if _, err := store.Get(context.Background(), storage.KeyTowerMetadata); !errors.Is(err, domain.ErrStoreNotFound) {
				t.Errorf("metadata must not be stored, Get() error = %v", err)
			}
			if got := testutil.ToFloat64(metrics.ReplicationCycles.WithLabelValues(tt.wantOutcome)); got != 1 {
				t.Errorf("%s cycles = %v, want 1", tt.wantOutcome, got)
			}
			if got := testutil.ToFloat64(metrics.ReplicationLastSuccess); got != 0 {
				t.Errorf("last success = %v, want 0", got)
			}
			if !s.LastSuccess().IsZero() {
				t.Errorf("LastSuccess() = %v, want zero", s.LastSuccess())
			}
		})
	}
}

func TestRunOnce_Encrypted(t *testing.T) {
	key := make([]byte, adaptive.KeySize)
	for i := range key {
		key[i] = byte(255 - i)
	}
	c, err := adaptive.New(key)
	if err != nil {
		t.Fatal(err)
	}

	store := newRecordingStore()
	s := New(store, Config{SourcePath: writeSource(t, "0123456789")}, WithLogger(discard), WithCipher(c))
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	stored, _ := store.Get(context.Background(), storage.KeyTowerFile)
	if string(stored) == "0123456789" {
		t.Fatal("blob stored in plaintext")
	}
	plain, err := adaptive.Open(key, stored, []byte(storage.KeyTowerFile))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if string(plain) != "0123456789" {
		t.Errorf("decrypted = %q", plain)
	}

	raw, _ := store.Get(context.Background(), storage.KeyTowerMetadata)
	meta, _ := domain.DecodeMetadata(raw)
	if !meta.Encrypted || meta.Size != uint64(len(stored)) {
		t.Errorf("metadata = %+v, want encrypted with stored size %d", meta, len(stored))
	}
}

func TestRun_NoStoreParks(t *testing.T) {
	s := New(nil, Config{SourcePath: "/unused", Interval: time.Millisecond}, WithLogger(discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("Run() returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRun_ImmediateFirstCycleThenTicks(t *testing.T) {
	store := newRecordingStore()
	s := New(store, Config{SourcePath: writeSource(t, "x"), Interval: 20 * time.Millisecond}, WithLogger(discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for store.putCount() < 6 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n := store.putCount(); n < 6 {
		t.Fatalf("puts = %d after 2s, want at least 3 cycles", n)
	}
}

func TestRun_FirstCycleBeforeInterval(t *testing.T) {
	store := newRecordingStore()
	s := New(store, Config{SourcePath: writeSource(t, "x"), Interval: time.Hour}, WithLogger(discard))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for store.putCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("no cycle ran before the first interval elapsed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRun_FailuresDoNotStopScheduler(t *testing.T) {
	store := newRecordingStore()
	store.failOn[storage.KeyTowerFile] = errors.New("kv unreachable")

	s := New(store, Config{SourcePath: writeSource(t, "x"), Interval: 10 * time.Millisecond}, WithLogger(discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for store.putCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if store.putCount() < 3 {
		t.Fatalf("puts = %d, scheduler stopped after failures", store.putCount())
	}
}
