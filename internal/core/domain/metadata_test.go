package domain

import (
	"errors"
	"testing"
	"time"
)

func TestMetadata_EncodeDecode(t *testing.T) {
	now := time.Unix(1_750_000_000, 0)
	m := NewMetadata(now, 10, "abcd", true)

	got, err := DecodeMetadata(m.Encode())
	if err != nil {
		t.Fatalf("DecodeMetadata() error = %v", err)
	}
	if got != m {
		t.Errorf("DecodeMetadata() = %+v, want %+v", got, m)
	}
}

func TestDecodeMetadata(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Metadata
		wantErr bool
	}{
		{
			name:  "minimal record",
			input: `{"timestamp":1700000000,"size":10}`,
			want:  Metadata{Timestamp: 1700000000, Size: 10},
		},
		{
			name:  "extra fields appended",
			input: `{"timestamp": 42, "size": 7, "host": "validator-1", "epoch": 9}`,
			want:  Metadata{Timestamp: 42, Size: 7},
		},
		{
			name:  "size omitted",
			input: `{"timestamp":5}`,
			want:  Metadata{Timestamp: 5},
		},
		{name: "missing timestamp", input: `{"size":10}`, wantErr: true},
		{name: "quoted timestamp", input: `{"timestamp":"1700000000"}`, wantErr: true},
		{name: "negative timestamp", input: `{"timestamp":-1}`, wantErr: true},
		{name: "fractional size", input: `{"timestamp":1,"size":1.5}`, wantErr: true},
		{name: "not json", input: `timestamp=1`, wantErr: true},
		{name: "json null", input: `null`, wantErr: true},
		{name: "json array", input: `[1,2]`, wantErr: true},
		{name: "empty", input: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeMetadata([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrMetadataFormat) {
					t.Fatalf("DecodeMetadata() error = %v, want ErrMetadataFormat", err)
				}
				if errors.Is(err, ErrStaleData) {
					t.Fatal("format error must be distinct from StaleData")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeMetadata() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeMetadata() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMetadata_Age(t *testing.T) {
	now := time.Unix(1000, 0)

	tests := []struct {
		name string
		ts   uint64
		want time.Duration
	}{
		{"past", 600, 400 * time.Second},
		{"same second", 1000, 0},
		{"future clamps to zero", 1300, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Metadata{Timestamp: tt.ts}
			if got := m.Age(now); got != tt.want {
				t.Errorf("Age() = %v, want %v", got, tt.want)
			}
		})
	}
}
