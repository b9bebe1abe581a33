package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yndnr/towerlink-go/internal/infra/shutdown"
)

// shutdownTimeout bounds how long a role may take to stop after a signal.
const shutdownTimeout = 10 * time.Second

// serve runs fn until it returns on its own or a termination signal
// arrives. On a signal, fn's context is cancelled and fn gets
// shutdownTimeout to return.
func serve(parent context.Context, log *slog.Logger, name string, fn func(context.Context) error) error {
	sh := shutdown.NewHandler(shutdownTimeout, log)
	sigCtx, stop := sh.Context(parent)
	defer stop()

	runCtx, cancel := context.WithCancel(parent)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(runCtx) }()

	var runErr error
	sh.OnShutdown(name, func(ctx context.Context) error {
		cancel()
		select {
		case runErr = <-done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("did not stop in time: %w", ctx.Err())
		}
	})

	select {
	case err := <-done:
		return err
	case <-sigCtx.Done():
		log.Info("shutdown requested", "role", name)
		if err := sh.Shutdown(); err != nil {
			return err
		}
		return runErr
	}
}
