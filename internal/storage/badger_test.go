package storage

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/yndnr/towerlink-go/internal/core/domain"
)

func TestBadgerStore_BasicOperations(t *testing.T) {
	cfg := DefaultBadgerConfig(t.TempDir())
	cfg.GCInterval = time.Hour // Disable auto GC for tests

	s, err := OpenBadger(cfg, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()

	t.Run("Put and Get", func(t *testing.T) {
		if err := s.Put(ctx, KeyTowerFile, []byte("0123456789")); err != nil {
			t.Fatal(err)
		}
		got, err := s.Get(ctx, KeyTowerFile)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "0123456789" {
			t.Errorf("expected %s, got %s", "0123456789", got)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := s.Put(ctx, KeyTowerFile, []byte("next")); err != nil {
			t.Fatal(err)
		}
		got, _ := s.Get(ctx, KeyTowerFile)
		if string(got) != "next" {
			t.Errorf("expected overwrite, got %s", got)
		}
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		_, err := s.Get(ctx, KeyTowerMetadata)
		if !errors.Is(err, domain.ErrStoreNotFound) {
			t.Errorf("expected ErrStoreNotFound, got %v", err)
		}
	})
}

func TestBadgerStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenBadger(DefaultBadgerConfig(dir), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, KeyTowerMetadata, []byte(`{"timestamp":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = OpenBadger(DefaultBadgerConfig(dir), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, err := s.Get(ctx, KeyTowerMetadata)
	if err != nil {
		t.Fatalf("value should survive reopen: %v", err)
	}
	if string(got) != `{"timestamp":1}` {
		t.Errorf("got %s", got)
	}
}
