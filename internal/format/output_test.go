package format

import (
	"strings"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	var b strings.Builder
	if err := Write(&b, map[string]string{"id": "syn1"}, "json", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(b.String()) != `{"id":"syn1"}` {
		t.Fatalf("unexpected output: %q", b.String())
	}
}

func TestWritePrettyJSON(t *testing.T) {
	var b strings.Builder
	if err := Write(&b, map[string]string{"id": "syn1"}, "", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(b.String(), "\n  \"id\": \"syn1\"") {
		t.Fatalf("expected indented output, got %q", b.String())
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	var b strings.Builder
	if err := Write(&b, nil, "yaml", false); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestTableOutput(t *testing.T) {
	tbl := NewTable("ID", "NAME")
	tbl.AddRow("syn1", "ChallengeA")

	var b strings.Builder
	if err := Write(&b, tbl, "table", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := b.String()
	if !strings.Contains(out, "ID") || !strings.Contains(out, "syn1") {
		t.Fatalf("unexpected table output: %q", out)
	}
}
