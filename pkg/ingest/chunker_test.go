package ingest

import (
	"strings"
	"testing"

	"github.com/khalid729/Personal-Life-RAG/pkg/graph"
)

func TestIsMostlyEnglish(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"This is a plain English document about Go services.", true},
		{"صرفت خمسة وعشرين ريال على الغداء اليوم", false},
		{"mixed نص عربي with some English كلمات كثيرة جدا هنا", false},
		{"", true},
	}
	for _, tt := range tests {
		if got := IsMostlyEnglish(tt.text); got != tt.want {
			t.Errorf("IsMostlyEnglish(%.30q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestCountTokens(t *testing.T) {
	if CountTokens("") != 0 {
		t.Error("empty text should count zero tokens")
	}
	n := CountTokens("hello world")
	if n < 1 || n > 4 {
		t.Errorf("token count = %d", n)
	}
}

func TestChunkTextShortInput(t *testing.T) {
	chunks := ChunkText("one two three", 100, 10)
	if len(chunks) != 1 || chunks[0] != "one two three" {
		t.Errorf("chunks = %v", chunks)
	}

	if got := ChunkText("", 100, 10); got != nil {
		t.Errorf("empty input chunks = %v", got)
	}
}

func TestChunkTextSplitsWithOverlap(t *testing.T) {
	words := make([]string, 200)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ")

	chunks := ChunkText(text, 50, 10)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if n := CountTokens(c); n > 50 {
			t.Errorf("chunk %d has %d tokens", i, n)
		}
	}

	// Every word survives chunking.
	total := 0
	for _, c := range chunks {
		total += len(strings.Fields(c))
	}
	if total < 200 {
		t.Errorf("words lost: %d < 200", total)
	}

	// Consecutive chunks share overlap.
	tail := strings.Fields(chunks[0])
	head := strings.Fields(chunks[1])
	if tail[len(tail)-1] != head[0] {
		t.Error("no overlap between consecutive chunks")
	}
}

func TestMergeFacts(t *testing.T) {
	batches := []*graph.Facts{
		{Entities: []graph.FactEntity{
			{Type: "Person", Name: "خالد"},
			{Type: "Task", Name: "تقرير"},
		}},
		nil,
		{Entities: []graph.FactEntity{
			{Type: "Person", Name: " خالد "},
			{Type: "Person", Name: "سارة"},
		}},
	}

	merged := mergeFacts(batches)
	if len(merged.Entities) != 3 {
		t.Errorf("entities = %+v", merged.Entities)
	}
}
