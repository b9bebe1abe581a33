package push

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	frameMagic  = "TWR1"
	headerSize  = len(frameMagic) + 8
	trailerSize = sha256.Size

	// DefaultMaxBlobSize caps the payload a receiver accepts.
	DefaultMaxBlobSize = 64 << 20

	// readChunk bounds the initial buffer reservation, so a forged length
	// cannot force a large allocation before any payload arrives.
	readChunk = 1 << 20
)

// Ack bytes.
const (
	AckPersisted byte = 1
	AckRejected  byte = 0
)

var (
	// ErrBadMagic is returned when the stream does not start with a frame header.
	ErrBadMagic = errors.New("push: bad frame magic")
	// ErrTooLarge is returned when the declared length exceeds the limit.
	ErrTooLarge = errors.New("push: frame exceeds size limit")
	// ErrChecksum is returned when the payload digest does not match.
	ErrChecksum = errors.New("push: frame checksum mismatch")
	// ErrTrailingData is returned when bytes follow the frame before end-of-stream.
	ErrTrailingData = errors.New("push: trailing data after frame")
)

// WriteFrame writes blob as a single frame.
func WriteFrame(w io.Writer, blob []byte) error {
	var header [headerSize]byte
	copy(header[:], frameMagic)
	binary.BigEndian.PutUint64(header[len(frameMagic):], uint64(len(blob)))

	sum := sha256.Sum256(blob)

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("push: write header: %w", err)
	}
	if _, err := w.Write(blob); err != nil {
		return fmt.Errorf("push: write payload: %w", err)
	}
	if _, err := w.Write(sum[:]); err != nil {
		return fmt.Errorf("push: write checksum: %w", err)
	}
	return nil
}

// ReadFrame reads one frame and expects end-of-stream right after it.
// A stream that ends early yields io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader, maxSize uint64) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("push: read header: %w", unexpected(err))
	}
	if string(header[:len(frameMagic)]) != frameMagic {
		return nil, ErrBadMagic
	}

	length := binary.BigEndian.Uint64(header[len(frameMagic):])
	if length > maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, length, maxSize)
	}

	var buf bytes.Buffer
	buf.Grow(int(min(length, readChunk)))
	if _, err := io.CopyN(&buf, r, int64(length)); err != nil {
		return nil, fmt.Errorf("push: read payload: %w", unexpected(err))
	}

	var sum [trailerSize]byte
	if _, err := io.ReadFull(r, sum[:]); err != nil {
		return nil, fmt.Errorf("push: read checksum: %w", unexpected(err))
	}
	if sha256.Sum256(buf.Bytes()) != sum {
		return nil, ErrChecksum
	}

	var extra [1]byte
	switch _, err := io.ReadFull(r, extra[:]); {
	case err == nil:
		return nil, ErrTrailingData
	case !errors.Is(err, io.EOF):
		return nil, fmt.Errorf("push: await end of stream: %w", err)
	}

	return buf.Bytes(), nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
