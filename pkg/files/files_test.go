package files

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestGuessExt(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/jpeg", ".jpg"},
		{"application/pdf", ".pdf"},
		{"audio/mpeg", ".mp3"},
		{"audio/x-m4a", ".m4a"},
		{"text/markdown", ".md"},
		{"application/octet-stream", ".bin"},
	}
	for _, tt := range tests {
		if got := guessExt(tt.contentType); got != tt.want {
			t.Errorf("guessExt(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}

func TestAnalysisToTextInvoice(t *testing.T) {
	analysis := map[string]any{
		"vendor":       "بنده",
		"date":         "2026-08-20",
		"total_amount": float64(125),
		"currency":     "SAR",
		"items": []any{
			map[string]any{"name": "حليب", "price": float64(12.5)},
			map[string]any{"name": "خبز", "price": float64(4)},
		},
	}

	text := analysisToText(analysis, "invoice", "receipt.jpg")

	for _, want := range []string{
		"File: receipt.jpg (type: invoice)",
		"Invoice from بنده, date: 2026-08-20, total: 125 SAR",
		"Items:",
		"  - حليب: 12.50 SAR",
		"  - خبز: 4 SAR",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestAnalysisToTextOfficialDocumentMembers(t *testing.T) {
	analysis := map[string]any{
		"document_type": "family_card",
		"title":         "سجل الأسرة",
		"members": []any{
			map[string]any{
				"name":          "خالد بن ابراهيم المهيدب",
				"role":          "head_of_family",
				"date_of_birth": "1409-05-12",
				"id_number":     "1023456789",
			},
			map[string]any{"name": "سارة"},
		},
		"reference_numbers": map[string]any{"reference_id": "FC-4417", "plate_number": nil},
	}

	text := analysisToText(analysis, "official_document", "card.jpg")

	if !strings.Contains(text, "Member: name_ar: خالد بن ابراهيم المهيدب, role: head_of_family, born: 1409-05-12, ID: 1023456789") {
		t.Errorf("member line wrong:\n%s", text)
	}
	if !strings.Contains(text, "Member: name_ar: سارة") {
		t.Errorf("sparse member missing:\n%s", text)
	}
	if !strings.Contains(text, "Reference numbers: reference_id: FC-4417") {
		t.Errorf("reference numbers missing:\n%s", text)
	}
	if strings.Contains(text, "plate_number") {
		t.Errorf("null reference leaked:\n%s", text)
	}
}

func TestAnalysisToTextGenericSkipsErrorKeys(t *testing.T) {
	analysis := map[string]any{
		"extracted_text": "schedule for sprint",
		"error":          "should not appear",
		"raw":            "nor this",
		"key_information": []any{"point one", "point two"},
	}

	text := analysisToText(analysis, "info_image", "chart.png")

	if !strings.Contains(text, "extracted_text: schedule for sprint") {
		t.Errorf("text field missing:\n%s", text)
	}
	if !strings.Contains(text, "key_information: point one, point two") {
		t.Errorf("list field missing:\n%s", text)
	}
	if strings.Contains(text, "should not appear") || strings.Contains(text, "nor this") {
		t.Errorf("error/raw keys leaked:\n%s", text)
	}
}

func TestParseAnalysis(t *testing.T) {
	out := parseAnalysis("```json\n{\"vendor\": \"Extra\"}\n```")
	if out["vendor"] != "Extra" {
		t.Errorf("fenced JSON not parsed: %v", out)
	}

	out = parseAnalysis("definitely not json")
	if out["error"] == nil || out["raw"] != "definitely not json" {
		t.Errorf("unparseable reply should degrade to error map: %v", out)
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{float64(12.5), 12.5},
		{"125", 125},
		{" 99.9 ", 99.9},
		{"abc", 0},
		{nil, 0},
	}
	for _, tt := range tests {
		if got := toFloat(tt.in); got != tt.want {
			t.Errorf("toFloat(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDecodeText(t *testing.T) {
	text, enc := decodeText([]byte("plain utf-8 text مع عربي"))
	if enc != "utf-8" || !strings.Contains(text, "عربي") {
		t.Errorf("utf-8 decode: %q via %s", text, enc)
	}

	// "سلام" in Windows-1256.
	cp1256 := []byte{0xD3, 0xE1, 0xC7, 0xE3}
	text, enc = decodeText(cp1256)
	if enc != "windows-1256" || text != "سلام" {
		t.Errorf("cp1256 decode: %q via %s", text, enc)
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		url   string
		want  []string
		isGit bool
	}{
		{
			"https://github.com/knadh/koanf",
			[]string{
				"https://raw.githubusercontent.com/knadh/koanf/main/README.md",
				"https://raw.githubusercontent.com/knadh/koanf/master/README.md",
			},
			true,
		},
		{
			"https://github.com/knadh/koanf/blob/main/getters.go",
			[]string{"https://raw.githubusercontent.com/knadh/koanf/main/getters.go"},
			true,
		},
		{
			"https://github.com/knadh/koanf/tree/main/providers/env",
			[]string{"https://raw.githubusercontent.com/knadh/koanf/main/providers/env/README.md"},
			true,
		},
		{
			"https://example.com/article",
			[]string{"https://example.com/article"},
			false,
		},
	}
	for _, tt := range tests {
		isGit, got := resolveURL(tt.url)
		if isGit != tt.isGit {
			t.Errorf("resolveURL(%q) resolved = %v", tt.url, isGit)
		}
		if len(got) != len(tt.want) {
			t.Errorf("resolveURL(%q) = %v, want %v", tt.url, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("resolveURL(%q)[%d] = %q, want %q", tt.url, i, got[i], tt.want[i])
			}
		}
	}
}

func TestVisionPrompt(t *testing.T) {
	p := visionPrompt("nonexistent_class", "")
	if p != visionPrompts["info_image"] {
		t.Error("unknown class should fall back to info_image prompt")
	}

	p = visionPrompt("invoice", "فاتورة مطعم")
	if !strings.HasSuffix(p, "Additional context from user: فاتورة مطعم") {
		t.Errorf("user context not appended: %q", p[len(p)-60:])
	}
}

func TestCollapseWhitespace(t *testing.T) {
	in := "  Title \n\n\n\n  body   text  \n\n more "
	want := "Title\n\nbody text\n\nmore"
	if got := collapseWhitespace(in); got != want {
		t.Errorf("collapseWhitespace = %q, want %q", got, want)
	}
}

func TestStringifyNumbers(t *testing.T) {
	if got := stringify(float64(125), "N/A"); got != "125" {
		t.Errorf("whole float = %q", got)
	}
	if got := stringify(float64(12.5), "N/A"); got != "12.50" {
		t.Errorf("fractional float = %q", got)
	}
	if got := stringify(nil, "N/A"); got != "N/A" {
		t.Errorf("nil = %q", got)
	}
}

func TestPdftoppmArgs(t *testing.T) {
	args := pdftoppmArgs("/tmp/in.pdf", "/tmp/pages/page")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-r 200") {
		t.Errorf("render resolution missing or wrong: %q", joined)
	}
	if !strings.Contains(joined, "-f 1 -l 5") {
		t.Errorf("page range missing or wrong: %q", joined)
	}
	if args[len(args)-2] != "/tmp/in.pdf" || args[len(args)-1] != "/tmp/pages/page" {
		t.Errorf("input and prefix must come last: %q", joined)
	}
}

func TestTranscribeClosesErrorResponses(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	srv.Start()
	defer srv.Close()

	asr := NewTranscriber(TranscriberConfig{BaseURL: srv.URL, Model: "whisper"})
	for i := range 3 {
		hash := fmt.Sprintf("hash%d", i)
		if _, err := asr.Transcribe(context.Background(), []byte("audio"), "note.mp3", hash); err == nil {
			t.Fatal("expected error for HTTP 400")
		}
	}

	// An unclosed error body pins its connection, forcing a new one per
	// request.
	if got := conns.Load(); got != 1 {
		t.Errorf("connections opened = %d, want 1", got)
	}
}
