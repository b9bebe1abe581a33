package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("json should give JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML).(*YAMLFormatter); !ok {
		t.Error("yaml should give YAMLFormatter")
	}
	if _, ok := NewFormatter("other").(*TableFormatter); !ok {
		t.Error("unknown should default to TableFormatter")
	}
}

var sample = map[string]any{
	"receiver": map[string]any{
		"sender_addr":     "10.0.0.1:4433",
		"staleness_bound": "5m0s",
	},
	"store": map[string]any{"backend": ""},
}

func TestTableFormatter_FlattensMaps(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, sample); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "KEY") {
		t.Errorf("header = %q", lines[0])
	}
	// sorted keys
	if !strings.HasPrefix(lines[1], "receiver.sender_addr") || !strings.Contains(lines[1], "10.0.0.1:4433") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], "store.backend") || !strings.HasSuffix(lines[3], "-") {
		t.Errorf("empty values render as '-', line 3 = %q", lines[3])
	}
}

func TestTableFormatter_Struct(t *testing.T) {
	type status struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}

	var buf bytes.Buffer
	f := &TableFormatter{NoHeaders: true}
	if err := f.Format(&buf, status{Status: "ready", Count: 3}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "KEY") {
		t.Error("NoHeaders should suppress the header row")
	}
	first := strings.Fields(strings.Split(out, "\n")[0])
	if len(first) != 2 || first[0] != "count" || first[1] != "3" {
		t.Errorf("integral JSON numbers should print without fraction:\n%s", out)
	}
}

func TestTable_Render(t *testing.T) {
	tbl := &Table{Headers: []string{"ENDPOINT", "STATUS"}}
	tbl.AddRow("/health", "200")
	tbl.AddRow("/ready", "503")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatal(err)
	}
	want := "ENDPOINT  STATUS\n/health   200\n/ready    503\n"
	if buf.String() != want {
		t.Errorf("Render() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, map[string]string{"status": "ready"}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\n  \"status\": \"ready\"\n}\n" {
		t.Errorf("Format() = %q", buf.String())
	}
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, sample); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"receiver:", "sender_addr:", "10.0.0.1:4433", "staleness_bound: 5m0s"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML output missing %q:\n%s", want, out)
		}
	}
}

func TestYAMLFormatter_RejectsScalars(t *testing.T) {
	if err := (&YAMLFormatter{}).Format(&bytes.Buffer{}, 42); err == nil {
		t.Error("a scalar has no YAML mapping form and should be rejected")
	}
}
