// Package transport provides the authenticated QUIC channel between the
// sender and the receiver.
//
// Both ends negotiate the "quinn-tower" ALPN identifier, so unrelated QUIC
// traffic on the same port fails at handshake time. The sender listens with
// a certificate that may be hot-reloaded; the receiver dials with a
// TrustPolicy deciding whether the presented certificate is acceptable.
//
// The package does not retry. Dial failures are classified into
// domain.ErrUnreachable, domain.ErrHandshakeFailed and domain.ErrTimeout so
// the caller can decide whether to redial.
package transport
