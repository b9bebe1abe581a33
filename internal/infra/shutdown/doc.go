// Package shutdown coordinates process termination.
//
// Context derives a context cancelled by SIGINT or SIGTERM. Once the role
// has stopped, Shutdown runs the registered hooks in reverse order under
// a common deadline:
//
//	h := shutdown.NewHandler(10*time.Second, log)
//	ctx, stop := h.Context(context.Background())
//	defer stop()
//	h.OnShutdown("store", store.Close)
//	err := run(ctx)
//	_ = h.Shutdown()
package shutdown
