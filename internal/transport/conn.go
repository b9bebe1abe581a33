package transport

import (
	"context"
	"crypto/x509"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

// Connection is an established, authenticated QUIC connection. It is owned
// by a single session and must be closed by it.
type Connection struct {
	conn quic.Connection
}

func newConnection(conn quic.Connection) *Connection {
	return &Connection{conn: conn}
}

// OpenStream opens a bidirectional stream. The peer observes it once the
// first byte is written.
func (c *Connection) OpenStream(ctx context.Context) (*Stream, error) {
	s, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &Stream{s: s}, nil
}

// AcceptStream waits for a stream opened by the peer.
func (c *Connection) AcceptStream(ctx context.Context) (*Stream, error) {
	s, err := c.conn.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}
	return &Stream{s: s}, nil
}

// RemoteAddr returns the peer address.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// PeerCertificates returns the chain presented by the peer, leaf first.
func (c *Connection) PeerCertificates() []*x509.Certificate {
	return c.conn.ConnectionState().TLS.PeerCertificates
}

// NegotiatedProtocol returns the ALPN identifier agreed at handshake.
func (c *Connection) NegotiatedProtocol() string {
	return c.conn.ConnectionState().TLS.NegotiatedProtocol
}

// Done is closed when the connection terminates for any reason.
func (c *Connection) Done() <-chan struct{} {
	return c.conn.Context().Done()
}

// Close closes the connection with no error.
func (c *Connection) Close() error {
	return c.conn.CloseWithError(0, "")
}

// CloseWithError closes the connection reporting code and reason to the peer.
func (c *Connection) CloseWithError(code uint64, reason string) error {
	return c.conn.CloseWithError(quic.ApplicationErrorCode(code), reason)
}

// Stream is one bidirectional byte stream.
type Stream struct {
	s quic.Stream
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	return s.s.Read(p)
}

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	return s.s.Write(p)
}

// CloseWrite signals end-of-data on the send half. Reads remain possible.
func (s *Stream) CloseWrite() error {
	return s.s.Close()
}

// CancelRead discards any further incoming data.
func (s *Stream) CancelRead(code uint64) {
	s.s.CancelRead(quic.StreamErrorCode(code))
}

// CancelWrite abandons the send half without delivering buffered data.
func (s *Stream) CancelWrite(code uint64) {
	s.s.CancelWrite(quic.StreamErrorCode(code))
}

// SetReadDeadline bounds future Read calls.
func (s *Stream) SetReadDeadline(t time.Time) error {
	return s.s.SetReadDeadline(t)
}

// SetWriteDeadline bounds future Write calls.
func (s *Stream) SetWriteDeadline(t time.Time) error {
	return s.s.SetWriteDeadline(t)
}
