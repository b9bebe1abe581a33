package transport

import (
	"time"

	"github.com/quic-go/quic-go"
)

// DefaultALPN is the application protocol both ends must negotiate.
const DefaultALPN = "quinn-tower"

// Default channel timeouts.
const (
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultIdleTimeout      = 30 * time.Second
	DefaultKeepAlive        = 10 * time.Second
)

type options struct {
	alpn             string
	serverName       string
	handshakeTimeout time.Duration
	idleTimeout      time.Duration
	keepAlive        time.Duration
}

// Option configures Listen and Dial.
type Option func(*options)

// WithALPN overrides the application protocol identifier.
func WithALPN(proto string) Option {
	return func(o *options) {
		o.alpn = proto
	}
}

// WithServerName sets the identity the dialer expects from the listener.
// Defaults to the host part of the dialed address.
func WithServerName(name string) Option {
	return func(o *options) {
		o.serverName = name
	}
}

// WithHandshakeTimeout bounds the QUIC handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.handshakeTimeout = d
	}
}

// WithIdleTimeout closes connections with no activity for d.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = d
	}
}

func buildOptions(opts []Option) options {
	o := options{
		alpn:             DefaultALPN,
		handshakeTimeout: DefaultHandshakeTimeout,
		idleTimeout:      DefaultIdleTimeout,
		keepAlive:        DefaultKeepAlive,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.keepAlive >= o.idleTimeout {
		o.keepAlive = o.idleTimeout / 2
	}
	return o
}

func (o options) quicConfig() *quic.Config {
	return &quic.Config{
		HandshakeIdleTimeout: o.handshakeTimeout,
		MaxIdleTimeout:       o.idleTimeout,
		KeepAlivePeriod:      o.keepAlive,
	}
}
