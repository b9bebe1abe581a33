// Package push implements the direct sender-to-receiver transfer of the
// tower file over one QUIC stream.
//
// The sender opens a bidirectional stream on every accepted connection,
// writes one frame and half-closes. The receiver decodes the frame,
// commits it to the destination and answers with a single ack byte:
// 1 when the blob was persisted, 0 otherwise.
//
// Frame layout:
//
//	"TWR1" | length (uint64, big-endian) | payload | SHA-256(payload)
//
// The explicit length and digest let the receiver tell a complete transfer
// from one cut short by a dropped connection.
package push
