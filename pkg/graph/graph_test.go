package graph

import (
	"strings"
	"testing"
)

func TestNormalizeNameCollapsesWhitespace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Khalid   Ahmed ", "khalid ahmed"},
		{"مشروع\tالبيت", "مشروع البيت"},
		{"ONE", "one"},
	}
	for _, tt := range tests {
		if got := normalizeName(tt.in); got != tt.want {
			t.Errorf("normalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeValue(t *testing.T) {
	if got := sanitizeValue("plain"); got != "plain" {
		t.Errorf("string passthrough: %v", got)
	}
	if got := sanitizeValue(42); got != 42 {
		t.Errorf("int passthrough: %v", got)
	}

	got := sanitizeValue(map[string]any{"a": 1})
	if s, ok := got.(string); !ok || !strings.Contains(s, `"a":1`) {
		t.Errorf("nested map should serialise to JSON: %v", got)
	}

	gotArr := sanitizeValue([]any{"x", map[string]any{"b": 2}})
	arr, ok := gotArr.([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("array shape: %v", gotArr)
	}
	if arr[0] != "x" {
		t.Errorf("scalar element should pass through: %v", arr[0])
	}
	if s, ok := arr[1].(string); !ok || !strings.Contains(s, `"b":2`) {
		t.Errorf("object element should serialise: %v", arr[1])
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		props map[string]any
		want  string
	}{
		{map[string]any{"name": "Aramco"}, "Aramco"},
		{map[string]any{"name": "Aramco", "name_ar": "أرامكو"}, "أرامكو (Aramco)"},
		{map[string]any{"title": "تقرير الربع"}, "تقرير الربع"},
		{map[string]any{}, ""},
	}
	for _, tt := range tests {
		if got := displayName(tt.props); got != tt.want {
			t.Errorf("displayName(%v) = %q, want %q", tt.props, got, tt.want)
		}
	}
}

func TestFormatContextLine(t *testing.T) {
	line := formatContextLine("Person", map[string]any{
		"name":       "خالد",
		"relation":   "أخ",
		"created_at": "2026-01-01",
		"age":        30,
	})

	if !strings.HasPrefix(line, "Person: خالد") {
		t.Errorf("prefix: %q", line)
	}
	if strings.Contains(line, "created_at") {
		t.Errorf("internal prop leaked: %q", line)
	}
	// Sorted keys: age before relation.
	if strings.Index(line, "age=30") > strings.Index(line, "relation=") {
		t.Errorf("keys not sorted: %q", line)
	}
}

func TestVisibleProps(t *testing.T) {
	props := map[string]any{
		"name":         "x",
		"name_aliases": []string{"y"},
		"file_hash":    "abc",
		"status":       "active",
	}
	vis := visibleProps(props)
	if _, ok := vis["name_aliases"]; ok {
		t.Error("name_aliases should be stripped")
	}
	if _, ok := vis["file_hash"]; ok {
		t.Error("file_hash should be stripped")
	}
	if vis["status"] != "active" || vis["name"] != "x" {
		t.Errorf("visible props lost: %v", vis)
	}
}

func TestKeyFieldFor(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Task", "title"},
		{"Reminder", "title"},
		{"Knowledge", "title"},
		{"Location", "path"},
		{"File", "sha256"},
		{"Person", "name"},
		{"Project", "name"},
	}
	for _, tt := range tests {
		if got := keyFieldFor(tt.label); got != tt.want {
			t.Errorf("keyFieldFor(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}
