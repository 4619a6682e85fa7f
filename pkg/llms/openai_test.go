package llms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(url string) *Client {
	return NewClient(Config{BaseURL: url, Model: "test-model", Temperature: 0.3, MaxTokens: 100})
}

func TestGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req openAIRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-model" {
			t.Errorf("unexpected model %q", req.Model)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "مرحبا"}, "finish_reason": "stop"},
			},
		})
	}))
	defer srv.Close()

	text, toolCalls, err := newTestClient(srv.URL).Generate(context.Background(), []Message{User("hi")}, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "مرحبا" {
		t.Errorf("expected Arabic reply, got %q", text)
	}
	if toolCalls != nil {
		t.Errorf("expected no tool calls, got %v", toolCalls)
	}
}

func TestGenerateToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"role":    "assistant",
					"content": nil,
					"tool_calls": []map[string]any{
						{
							"id":   "call_1",
							"type": "function",
							"function": map[string]any{
								"name":      "add_expense",
								"arguments": `{"amount": 25, "currency": "SAR"}`,
							},
						},
					},
				},
				"finish_reason": "tool_calls",
			}},
		})
	}))
	defer srv.Close()

	tools := []ToolDefinition{{Name: "add_expense", Description: "d", Parameters: map[string]any{"type": "object"}}}
	_, toolCalls, err := newTestClient(srv.URL).Generate(context.Background(), []Message{User("صرفت ٢٥ ريال")}, tools)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(toolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(toolCalls))
	}
	if toolCalls[0].Name != "add_expense" {
		t.Errorf("unexpected tool name %q", toolCalls[0].Name)
	}
	if toolCalls[0].Args["amount"] != float64(25) {
		t.Errorf("unexpected args: %v", toolCalls[0].Args)
	}
}

func TestGenerateStreamingAccumulatesToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"choices":[{"delta":{"tool_calls":[{"id":"c1","type":"function","function":{"name":"search_knowledge","arguments":"{\"qu"}}]},"finish_reason":""}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"function":{"arguments":"ery\":\"x\"}"}}]},"finish_reason":""}]}`,
			`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	ch, err := newTestClient(srv.URL).GenerateStreaming(context.Background(), []Message{User("hi")}, nil)
	if err != nil {
		t.Fatalf("GenerateStreaming failed: %v", err)
	}

	var got *ToolCall
	var done bool
	for chunk := range ch {
		switch chunk.Type {
		case "tool_call":
			got = chunk.ToolCall
		case "done":
			done = true
		case "error":
			t.Fatalf("stream error: %v", chunk.Error)
		}
	}

	if !done {
		t.Error("stream did not emit done")
	}
	if got == nil {
		t.Fatal("stream did not emit tool_call")
	}
	if got.Name != "search_knowledge" || got.Args["query"] != "x" {
		t.Errorf("tool call not accumulated correctly: %+v", got)
	}
}

func TestGenerateStreamingInterleavedToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"c1","type":"function","function":{"name":"add_expense","arguments":"{\"am"}}]},"finish_reason":""}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":1,"id":"c2","type":"function","function":{"name":"create_reminder","arguments":"{\"ti"}}]},"finish_reason":""}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"ount\":50}"}}]},"finish_reason":""}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":1,"function":{"arguments":"tle\":\"دواء\"}"}}]},"finish_reason":""}]}`,
			`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	ch, err := newTestClient(srv.URL).GenerateStreaming(context.Background(), []Message{User("hi")}, nil)
	if err != nil {
		t.Fatalf("GenerateStreaming failed: %v", err)
	}

	var calls []*ToolCall
	for chunk := range ch {
		switch chunk.Type {
		case "tool_call":
			calls = append(calls, chunk.ToolCall)
		case "error":
			t.Fatalf("stream error: %v", chunk.Error)
		}
	}

	if len(calls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(calls))
	}
	if calls[0].Name != "add_expense" || calls[0].Args["amount"] != float64(50) {
		t.Errorf("first call fragments misrouted: %+v", calls[0])
	}
	if calls[1].Name != "create_reminder" || calls[1].Args["title"] != "دواء" {
		t.Errorf("second call fragments misrouted: %+v", calls[1])
	}
}

func TestGenerateStreamingText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range []string{"مر", "حبا"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q},\"finish_reason\":\"\"}]}\n\n", tok)
		}
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	ch, err := newTestClient(srv.URL).GenerateStreaming(context.Background(), []Message{User("hi")}, nil)
	if err != nil {
		t.Fatalf("GenerateStreaming failed: %v", err)
	}

	var text string
	for chunk := range ch {
		if chunk.Type == "text" {
			text += chunk.Text
		}
	}
	if text != "مرحبا" {
		t.Errorf("expected streamed text مرحبا, got %q", text)
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		// Return data out of order; client must reorder by index.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0.2}},
				{"index": 0, "embedding": []float32{0.1}},
			},
		})
	}))
	defer srv.Close()

	e := NewEmbedder(srv.URL, "bge-m3", 1)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if vecs[0][0] != 0.1 || vecs[1][0] != 0.2 {
		t.Errorf("embedding order not preserved: %v", vecs)
	}
}

func TestDetectImageMediaType(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 8)...)
	if got := detectImageMediaType(png); got != "image/png" {
		t.Errorf("png detection failed: %s", got)
	}
	jpg := []byte{0xff, 0xd8, 0xff, 0xe0}
	if got := detectImageMediaType(jpg); got != "image/jpeg" {
		t.Errorf("jpeg detection failed: %s", got)
	}
}
