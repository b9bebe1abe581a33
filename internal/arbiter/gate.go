package arbiter

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/yndnr/towerlink-go/internal/infra/atomicfile"
)

// ErrLostArbitration is returned by Commit after another path has already
// written the destination. The caller's data is discarded.
var ErrLostArbitration = errors.New("arbiter: destination already committed by another path")

// Gate is the single-writer commit token for one failover attempt.
//
// Commits are serialized. The token is consumed only by a successful
// write, so a path whose write fails does not block the other path from
// committing.
type Gate struct {
	dest   string
	logger *slog.Logger
	write  func(path string, data []byte) error

	mu        sync.Mutex
	winner    string
	committed chan struct{}
}

// NewGate returns a gate guarding dest.
func NewGate(dest string, logger *slog.Logger) *Gate {
	return newGate(dest, logger, atomicfile.WriteFile)
}

func newGate(dest string, logger *slog.Logger, write func(string, []byte) error) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		dest:      dest,
		logger:    logger,
		write:     write,
		committed: make(chan struct{}),
	}
}

// Commit atomically replaces the destination with data if no path has
// committed yet. Later callers get ErrLostArbitration and the destination
// is left untouched.
func (g *Gate) Commit(source string, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.winner != "" {
		return ErrLostArbitration
	}
	if err := g.write(g.dest, data); err != nil {
		return err
	}

	g.winner = source
	close(g.committed)

	g.logger.Info("destination committed",
		"path", source,
		"dest", g.dest,
		"bytes", len(data),
	)
	return nil
}

// Winner returns the name of the committing path, or "" if none has.
func (g *Gate) Winner() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winner
}

// Committed is closed once a path has written the destination.
func (g *Gate) Committed() <-chan struct{} {
	return g.committed
}

// Dest returns the guarded destination path.
func (g *Gate) Dest() string {
	return g.dest
}
