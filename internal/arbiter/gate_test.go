package arbiter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGate_FirstCommitWins(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "tower.bin")
	g := NewGate(dest, slog.New(slog.DiscardHandler))

	if err := g.Commit("push", []byte("first")); err != nil {
		t.Fatalf("Commit(push) error = %v", err)
	}
	if err := g.Commit("fallback", []byte("second")); !errors.Is(err, ErrLostArbitration) {
		t.Fatalf("Commit(fallback) error = %v, want ErrLostArbitration", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first" {
		t.Errorf("dest = %q, want %q", got, "first")
	}
	if g.Winner() != "push" {
		t.Errorf("Winner() = %q, want push", g.Winner())
	}
	select {
	case <-g.Committed():
	default:
		t.Error("Committed() not closed after commit")
	}
}

func TestGate_ConcurrentCommitsWriteOnce(t *testing.T) {
	var writes atomic.Int32
	g := newGate("unused", slog.New(slog.DiscardHandler), func(string, []byte) error {
		writes.Add(1)
		return nil
	})

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Commit(fmt.Sprintf("path-%d", i), []byte("x")) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("winners = %d, want 1", wins.Load())
	}
	if writes.Load() != 1 {
		t.Errorf("writes = %d, want 1", writes.Load())
	}
}

func TestGate_FailedWriteKeepsTokenAvailable(t *testing.T) {
	fail := true
	g := newGate("unused", slog.New(slog.DiscardHandler), func(string, []byte) error {
		if fail {
			return errors.New("disk full")
		}
		return nil
	})

	if err := g.Commit("push", []byte("a")); err == nil {
		t.Fatal("Commit() expected write error")
	}
	if g.Winner() != "" {
		t.Fatalf("Winner() = %q after failed write, want empty", g.Winner())
	}

	fail = false
	if err := g.Commit("fallback", []byte("b")); err != nil {
		t.Fatalf("Commit() after failed write error = %v", err)
	}
	if g.Winner() != "fallback" {
		t.Errorf("Winner() = %q, want fallback", g.Winner())
	}
}
