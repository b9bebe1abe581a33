package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Metadata describes the freshness of a replicated tower snapshot.
//
// It is stored next to the blob as a JSON object. Timestamp is required;
// every other field is optional on decode so that older writers and newer
// writers that append fields remain readable.
type Metadata struct {
	// Timestamp is the capture time in seconds since the Unix epoch.
	Timestamp uint64
	// Size is the blob length in bytes as stored.
	Size uint64
	// Checksum is the hex SHA-256 of the stored blob, empty if unknown.
	Checksum string
	// Encrypted reports whether the stored blob is sealed with the store cipher.
	Encrypted bool
}

type metadataRecord struct {
	Timestamp uint64 `json:"timestamp"`
	Size      uint64 `json:"size"`
	Checksum  string `json:"checksum,omitempty"`
	Encrypted bool   `json:"encrypted,omitempty"`
}

// NewMetadata builds the freshness record for a blob captured at now.
func NewMetadata(now time.Time, size int, checksum string, encrypted bool) Metadata {
	return Metadata{
		Timestamp: uint64(now.Unix()),
		Size:      uint64(size),
		Checksum:  checksum,
		Encrypted: encrypted,
	}
}

// Encode returns the JSON encoding of m.
func (m Metadata) Encode() []byte {
	data, _ := json.Marshal(metadataRecord{
		Timestamp: m.Timestamp,
		Size:      m.Size,
		Checksum:  m.Checksum,
		Encrypted: m.Encrypted,
	})
	return data
}

// DecodeMetadata parses a freshness record.
//
// Unknown fields are ignored. A record that is not a JSON object, lacks
// "timestamp", or carries a non-numeric "timestamp" or "size" is rejected
// with ErrMetadataFormat.
func DecodeMetadata(data []byte) (Metadata, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &fields); err != nil {
		return Metadata{}, ErrMetadataFormat.Wrap(err)
	}
	if fields == nil {
		return Metadata{}, ErrMetadataFormat.WithDetails("not an object")
	}

	raw, ok := fields["timestamp"]
	if !ok {
		return Metadata{}, ErrMetadataFormat.WithDetails("missing timestamp")
	}
	ts, err := parseUint(raw)
	if err != nil {
		return Metadata{}, ErrMetadataFormat.WithDetails("timestamp").Wrap(err)
	}

	m := Metadata{Timestamp: ts}

	if raw, ok := fields["size"]; ok {
		if m.Size, err = parseUint(raw); err != nil {
			return Metadata{}, ErrMetadataFormat.WithDetails("size").Wrap(err)
		}
	}
	if raw, ok := fields["checksum"]; ok {
		if err := json.Unmarshal(raw, &m.Checksum); err != nil {
			return Metadata{}, ErrMetadataFormat.WithDetails("checksum").Wrap(err)
		}
	}
	if raw, ok := fields["encrypted"]; ok {
		if err := json.Unmarshal(raw, &m.Encrypted); err != nil {
			return Metadata{}, ErrMetadataFormat.WithDetails("encrypted").Wrap(err)
		}
	}

	return m, nil
}

// parseUint accepts a bare JSON integer only.
func parseUint(raw json.RawMessage) (uint64, error) {
	s := string(bytes.TrimSpace(raw))
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer: %s", s)
	}
	return v, nil
}

// Age returns how old the snapshot is at now. Clock skew that places the
// timestamp in the future yields zero.
func (m Metadata) Age(now time.Time) time.Duration {
	n := now.Unix()
	if n < 0 || uint64(n) <= m.Timestamp {
		return 0
	}
	return time.Duration(uint64(n)-m.Timestamp) * time.Second
}

// CapturedAt returns the timestamp as a time.Time.
func (m Metadata) CapturedAt() time.Time {
	return time.Unix(int64(m.Timestamp), 0)
}
