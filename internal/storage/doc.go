// Package storage provides the durable key-value store used for the
// fallback copy of the tower file.
//
// The store is a capability with two operations, Put and Get, addressed by
// flat string keys. Backends only need at-least-once durability; nothing
// here relies on multi-key transactions. Correctness of the fallback path
// comes from the write order used by the replication scheduler (blob first,
// metadata second).
//
// Backends:
//
//   - cloudflare: Workers KV namespace (cloudflare-go)
//   - badger: embedded directory, for hosts sharing a volume
//   - s3: bucket and key prefix (aws-sdk-go)
//   - gcs: bucket and key prefix (cloud.google.com/go/storage)
//   - memory: in-process map for tests and dry runs
//
// Open selects one from Config; Wrap adds key prefixing, per-request
// deadlines, latency metrics and timing logs on top.
package storage
