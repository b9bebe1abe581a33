package push

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"testing"
)

func encode(t *testing.T, blob []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteFrame(&buf, blob); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	return buf.Bytes()
}

func TestFrame_RoundTrip(t *testing.T) {
	large := make([]byte, 3<<20)
	if _, err := rand.Read(large); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		blob []byte
	}{
		{"empty", []byte{}},
		{"single byte", []byte{0}},
		{"ten digits", []byte("0123456789")},
		{"larger than read chunk", large},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadFrame(bytes.NewReader(encode(t, tt.blob)), DefaultMaxBlobSize)
			if err != nil {
				t.Fatalf("ReadFrame() error = %v", err)
			}
			if !bytes.Equal(got, tt.blob) {
				t.Errorf("ReadFrame() returned %d bytes, want %d", len(got), len(tt.blob))
			}
		})
	}
}

func TestReadFrame_Errors(t *testing.T) {
	valid := encode(t, []byte("0123456789"))

	corrupt := bytes.Clone(valid)
	corrupt[headerSize] ^= 0xff

	badMagic := bytes.Clone(valid)
	copy(badMagic, "HTTP")

	tests := []struct {
		name    string
		input   []byte
		max     uint64
		wantErr error
	}{
		{"empty stream", nil, DefaultMaxBlobSize, io.ErrUnexpectedEOF},
		{"truncated header", valid[:6], DefaultMaxBlobSize, io.ErrUnexpectedEOF},
		{"truncated payload", valid[:headerSize+4], DefaultMaxBlobSize, io.ErrUnexpectedEOF},
		{"truncated checksum", valid[:len(valid)-1], DefaultMaxBlobSize, io.ErrUnexpectedEOF},
		{"bad magic", badMagic, DefaultMaxBlobSize, ErrBadMagic},
		{"too large", valid, 9, ErrTooLarge},
		{"corrupt payload", corrupt, DefaultMaxBlobSize, ErrChecksum},
		{"trailing data", append(bytes.Clone(valid), 'x'), DefaultMaxBlobSize, ErrTrailingData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tt.input), tt.max)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReadFrame() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReadFrame_ForgedLength(t *testing.T) {
	// Header claims the maximum size but the stream ends immediately.
	forged := encode(t, make([]byte, 8))
	forged = forged[:headerSize]
	forged[4], forged[5], forged[6], forged[7] = 0, 0, 0, 0
	forged[8], forged[9], forged[10], forged[11] = 0x04, 0, 0, 0 // 64 MiB

	_, err := ReadFrame(bytes.NewReader(forged), DefaultMaxBlobSize)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("ReadFrame() error = %v, want io.ErrUnexpectedEOF", err)
	}
}
