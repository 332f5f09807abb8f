package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Name  string `json:"displayName"`
	Count int    `json:"count"`
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONFormatter{}).Write(&buf, sample{Name: "exit sign", Count: 3}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"displayName": "exit sign"`) {
		t.Fatalf("expected indented json tags, got %q", out)
	}
}

func TestYAMLFormatterUsesJSONTags(t *testing.T) {
	var buf bytes.Buffer
	if err := (YAMLFormatter{}).Write(&buf, sample{Name: "exit sign", Count: 3}); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "displayName: exit sign") {
		t.Fatalf("expected json tag keys in yaml, got %q", out)
	}
	if !strings.Contains(out, "count: 3") {
		t.Fatalf("expected count field, got %q", out)
	}
}

func TestForName(t *testing.T) {
	if _, err := ForName(""); err != nil {
		t.Fatalf("empty name should default to json: %v", err)
	}
	if _, err := ForName("yaml"); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if _, err := ForName("xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
