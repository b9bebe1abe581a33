// Package tlsroots manages the certificate material behind the transport
// trust policies.
//
//   - roots.go: CA pool loading and chain verification for the "ca" policy
//   - pin.go: SHA-256 certificate fingerprints for the "pinned" policy
//   - watcher.go: hot reload of the sender's certificate via fsnotify
package tlsroots
