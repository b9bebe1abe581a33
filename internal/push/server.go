package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/yndnr/towerlink-go/internal/core/domain"
	"github.com/yndnr/towerlink-go/internal/telemetry/logger"
	"github.com/yndnr/towerlink-go/internal/telemetry/metric"
	"github.com/yndnr/towerlink-go/internal/transport"
)

// Push outcomes, as logged and counted.
const (
	OutcomeAcked           = "acked"
	OutcomeAckMissing      = "ack_missing"
	OutcomeFailed          = "failed"
	OutcomeHandshakeFailed = "handshake_failed"
)

// Application close codes sent to the peer.
const (
	closeDone   = 0
	closeFailed = 1
)

// ServerConfig configures the sending side.
type ServerConfig struct {
	// SourcePath is the authoritative tower file, read on every connection.
	SourcePath string
	// HandshakeTimeout bounds Incoming.Resolve.
	HandshakeTimeout time.Duration
	// AckTimeout bounds the wait for the receiver's ack byte.
	AckTimeout time.Duration
}

// DefaultServerConfig returns defaults for everything but SourcePath.
func DefaultServerConfig(source string) ServerConfig {
	return ServerConfig{
		SourcePath:       source,
		HandshakeTimeout: transport.DefaultHandshakeTimeout,
		AckTimeout:       10 * time.Second,
	}
}

// Server pushes the tower file to every receiver that connects.
type Server struct {
	acceptor *transport.Acceptor
	cfg      ServerConfig
	logger   *slog.Logger
	metrics  *metric.Registry

	wg sync.WaitGroup
	// readSource is replaced in tests.
	readSource func(string) ([]byte, error)
}

// NewServer creates a push server on top of an acceptor. metrics may be nil.
func NewServer(acceptor *transport.Acceptor, cfg ServerConfig, log *slog.Logger, metrics *metric.Registry) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 10 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = transport.DefaultHandshakeTimeout
	}
	return &Server{
		acceptor:   acceptor,
		cfg:        cfg,
		logger:     log,
		metrics:    metrics,
		readSource: os.ReadFile,
	}
}

// Serve runs the accept loop until ctx is done or the acceptor is closed.
// Each connection is handled in its own goroutine; its failure is logged
// and never ends the loop. Serve waits for in-flight sessions before
// returning.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("push server accepting connections", "addr", s.acceptor.Addr().String())
	defer s.wg.Wait()

	for {
		in, err := s.acceptor.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Info("push server stopped")
				return nil
			}
			return fmt.Errorf("push: accept: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, in)
		}()
	}
}

func (s *Server) handle(ctx context.Context, in *transport.Incoming) {
	sessionID := domain.NewSessionID(time.Now())
	ctx = logger.WithSessionID(logger.WithLogger(ctx, s.logger), sessionID)
	log := logger.L(ctx).With("remote", in.RemoteAddr().String())

	hsCtx, cancel := context.WithTimeout(ctx, s.cfg.HandshakeTimeout)
	conn, err := in.Resolve(hsCtx)
	cancel()
	if err != nil {
		log.Warn("handshake failed", "error", err)
		s.observe(OutcomeHandshakeFailed, 0)
		return
	}

	outcome, n, err := s.push(ctx, conn)
	switch outcome {
	case OutcomeAcked:
		log.Info("tower pushed", "bytes", n)
		_ = conn.CloseWithError(closeDone, "")
	case OutcomeAckMissing:
		log.Warn("tower pushed without acknowledgment", "bytes", n, "error", err)
		_ = conn.CloseWithError(closeDone, "")
	default:
		log.Warn("push failed", "error", err)
		_ = conn.CloseWithError(closeFailed, "transfer failed")
	}
	s.observe(outcome, n)
}

// push runs Accepted -> SendingBlob -> AwaitingAck for one connection.
func (s *Server) push(ctx context.Context, conn *transport.Connection) (string, int, error) {
	blob, err := s.readSource(s.cfg.SourcePath)
	if err != nil {
		return OutcomeFailed, 0, domain.ErrTransferFailed.WithDetails("read source").Wrap(err)
	}

	stream, err := conn.OpenStream(ctx)
	if err != nil {
		return OutcomeFailed, 0, domain.ErrTransferFailed.WithDetails("open stream").Wrap(err)
	}

	if err := WriteFrame(stream, blob); err != nil {
		stream.CancelWrite(closeFailed)
		return OutcomeFailed, 0, domain.ErrTransferFailed.Wrap(err)
	}
	if err := stream.CloseWrite(); err != nil {
		return OutcomeFailed, 0, domain.ErrTransferFailed.WithDetails("half-close").Wrap(err)
	}

	if err := stream.SetReadDeadline(time.Now().Add(s.cfg.AckTimeout)); err != nil {
		return OutcomeAckMissing, len(blob), domain.ErrAckMissing.Wrap(err)
	}
	var ack [1]byte
	if _, err := io.ReadFull(stream, ack[:]); err != nil {
		return OutcomeAckMissing, len(blob), domain.ErrAckMissing.Wrap(err)
	}
	if ack[0] != AckPersisted {
		return OutcomeAckMissing, len(blob), domain.ErrAckMissing.WithDetails(fmt.Sprintf("receiver answered %d", ack[0]))
	}

	return OutcomeAcked, len(blob), nil
}

func (s *Server) observe(outcome string, n int) {
	if s.metrics == nil {
		return
	}
	s.metrics.PushTransfers.WithLabelValues("sender", outcome).Inc()
	if n > 0 {
		s.metrics.PushBytes.WithLabelValues("sender").Add(float64(n))
	}
}
