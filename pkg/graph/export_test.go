package graph

import (
	"bytes"
	"image/png"
	"testing"
)

func TestValidLabel(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Person", true},
		{"FocusSession", true},
		{"RELATED_TO", true},
		{"", false},
		{"Person) DETACH DELETE (n", false},
		{"label-with-dash", false},
	}
	for _, tt := range tests {
		if got := validLabel(tt.in); got != tt.want {
			t.Errorf("validLabel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFirstLabel(t *testing.T) {
	if got := firstLabel([]any{"Person", "Entity"}); got != "Person" {
		t.Errorf("firstLabel = %q", got)
	}
	if got := firstLabel([]string{"Task"}); got != "Task" {
		t.Errorf("firstLabel = %q", got)
	}
	if got := firstLabel(nil); got != "" {
		t.Errorf("firstLabel(nil) = %q", got)
	}
}

func TestNodeDisplayLabel(t *testing.T) {
	tests := []struct {
		props map[string]any
		want  string
	}{
		{map[string]any{"name": "خالد"}, "خالد"},
		{map[string]any{"description": "غداء"}, "غداء"},
		{map[string]any{"title": "تقرير"}, "تقرير"},
		{map[string]any{"name": "", "title": "تقرير"}, "تقرير"},
		{map[string]any{}, "4:abc:1"},
	}
	for _, tt := range tests {
		if got := nodeDisplayLabel(tt.props, "4:abc:1"); got != tt.want {
			t.Errorf("nodeDisplayLabel(%v) = %q, want %q", tt.props, got, tt.want)
		}
	}
}

func TestExportEdgeNilProps(t *testing.T) {
	e := exportEdge(map[string]any{"src": "a", "tgt": "b", "rel": "KNOWS", "props": nil})
	if e.Properties == nil {
		t.Error("edge properties should never be nil")
	}
	if e.Source != "a" || e.Target != "b" || e.Type != "KNOWS" {
		t.Errorf("edge = %+v", e)
	}
}

func TestRenderPNGEmpty(t *testing.T) {
	raw, err := RenderPNG(&GraphExport{}, 400, 300)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("output is not valid PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 400 || b.Dy() != 300 {
		t.Errorf("dimensions = %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderPNGSmallGraph(t *testing.T) {
	data := &GraphExport{
		Nodes: []GraphNode{
			{ID: "1", Label: "خالد", Type: "Person"},
			{ID: "2", Label: "مشروع البيت", Type: "Project"},
			{ID: "3", Label: "سباكة", Type: "Task"},
		},
		Edges: []GraphEdge{
			{Source: "3", Target: "2", Type: "BELONGS_TO"},
			{Source: "2", Target: "1", Type: "INVOLVES"},
		},
	}

	raw, err := RenderPNG(data, 600, 400)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Fatalf("output is not valid PNG: %v", err)
	}

	// Deterministic: same input renders identical bytes.
	again, err := RenderPNG(data, 600, 400)
	if err != nil {
		t.Fatalf("second render failed: %v", err)
	}
	if !bytes.Equal(raw, again) {
		t.Error("render is not deterministic")
	}
}

func TestSpringLayoutNormalised(t *testing.T) {
	data := &GraphExport{
		Nodes: []GraphNode{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
		Edges: []GraphEdge{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}},
	}
	pos := springLayout(data, 50)
	if len(pos) != 4 {
		t.Fatalf("positions = %v", pos)
	}
	for id, p := range pos {
		if p[0] < 0 || p[0] > 1 || p[1] < 0 || p[1] > 1 {
			t.Errorf("node %s outside unit square: %v", id, p)
		}
	}
}

func TestRestoreKey(t *testing.T) {
	field, val := restoreKey("Task", map[string]any{"title": "تقرير", "name": "x"})
	if field != "title" || val != "تقرير" {
		t.Errorf("restoreKey = %q/%q", field, val)
	}

	field, val = restoreKey("Person", map[string]any{"description": "بدون اسم"})
	if field != "description" || val != "بدون اسم" {
		t.Errorf("fallback = %q/%q", field, val)
	}

	if _, val := restoreKey("Person", map[string]any{"age": 30}); val != "" {
		t.Errorf("keyless node should be skipped, got %q", val)
	}
}

func TestSafeParamName(t *testing.T) {
	if got := safeParamName("last used-at"); got != "last_used_at" {
		t.Errorf("safeParamName = %q", got)
	}
}

func TestStringSlice(t *testing.T) {
	if got := stringSlice([]any{"a", 1, "b"}); len(got) != 2 || got[1] != "b" {
		t.Errorf("stringSlice = %v", got)
	}
	if got := stringSlice([]string{"x"}); len(got) != 1 {
		t.Errorf("stringSlice = %v", got)
	}
	if got := stringSlice(42); got != nil {
		t.Errorf("stringSlice = %v", got)
	}
}
