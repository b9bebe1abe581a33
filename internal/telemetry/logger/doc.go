// Package logger builds the process-wide structured logger.
//
//   - logger.go: slog handler construction and dynamic level
//   - context.go: session ID propagation through context
//   - redact.go: masking of store credentials before they reach output
package logger
