package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/khalid729/Personal-Life-RAG/pkg/llms"
)

// StreamEvent is one NDJSON line of the streaming chat response.
type StreamEvent struct {
	Type      string        `json:"type"` // meta, token, tool, done, error
	Route     string        `json:"route,omitempty"`
	Text      string        `json:"text,omitempty"`
	Tool      string        `json:"tool,omitempty"`
	Success   *bool         `json:"success,omitempty"`
	Reply     string        `json:"reply,omitempty"`
	ToolCalls []ToolOutcome `json:"tool_calls,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ChatStream runs one tool-calling turn, pushing events through emit.
// Text streams live until the first tool call; everything after tool
// execution is buffered so junk replies can be replaced before the
// client sees them.
func (s *Service) ChatStream(ctx context.Context, message, session string, emit func(StreamEvent) error) error {
	if session == "" {
		session = "default"
	}

	if result, handled := s.resolvePending(ctx, message, session); handled {
		if err := emit(StreamEvent{Type: "meta", Route: result.Route}); err != nil {
			return err
		}
		if err := emit(StreamEvent{Type: "token", Text: result.Reply}); err != nil {
			return err
		}
		return emit(StreamEvent{Type: "done", Reply: result.Reply, ToolCalls: result.ToolCalls})
	}

	route := s.DetectRoute(ctx, message)
	if err := emit(StreamEvent{Type: "meta", Route: route}); err != nil {
		return err
	}

	messages, err := s.buildMessages(ctx, message, session)
	if err != nil {
		return emit(StreamEvent{Type: "error", Error: err.Error()})
	}

	var (
		outcomes []ToolOutcome
		reply    string
	)

	for i := 0; i < s.cfg.MaxIterations; i++ {
		tools := toolCatalog
		if i == s.cfg.MaxIterations-1 {
			tools = nil
		}
		// Stream text to the client only before any tool has run.
		live := len(outcomes) == 0

		text, calls, err := s.streamOnce(ctx, messages, tools, live, emit)
		if err != nil {
			slog.Error("llm stream failed", "iteration", i, "error", err)
			if len(outcomes) > 0 {
				reply = fallbackReply(outcomes)
				if err := emit(StreamEvent{Type: "token", Text: reply}); err != nil {
					return err
				}
				break
			}
			return emit(StreamEvent{Type: "error", Error: "عذراً، حصل خطأ في المعالجة. حاول مرة ثانية."})
		}

		if len(calls) == 0 {
			reply = text
			if !live || junkReply(reply) {
				if junkReply(reply) && len(outcomes) > 0 {
					reply = fallbackReply(outcomes)
				}
				if err := emit(StreamEvent{Type: "token", Text: reply}); err != nil {
					return err
				}
			}
			break
		}

		if question, pending := s.interceptDestructive(ctx, calls, session); pending {
			if err := emit(StreamEvent{Type: "token", Text: question}); err != nil {
				return err
			}
			return emit(StreamEvent{Type: "done", Reply: question, ToolCalls: outcomes})
		}

		results := s.executeAll(ctx, calls, session)
		outcomes = append(outcomes, results...)
		for _, r := range results {
			ok := r.Success
			if err := emit(StreamEvent{Type: "tool", Tool: r.Tool, Success: &ok}); err != nil {
				return err
			}
		}

		messages = append(messages, llms.AssistantToolCalls(calls))
		for j, call := range calls {
			payload, _ := json.Marshal(results[j])
			messages = append(messages, llms.ToolResult(call.ID, string(payload)))
		}
	}

	if junkReply(reply) && len(outcomes) > 0 {
		reply = fallbackReply(outcomes)
	}
	if reply != "" {
		go s.postProcess(message, reply, session, outcomes)
	}
	return emit(StreamEvent{Type: "done", Reply: reply, ToolCalls: outcomes})
}

// streamOnce consumes one generation stream. When live is set, text
// chunks are forwarded as token events immediately; otherwise the text
// is only accumulated.
func (s *Service) streamOnce(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition, live bool, emit func(StreamEvent) error) (string, []llms.ToolCall, error) {
	ch, err := s.llm.GenerateStreaming(ctx, messages, tools)
	if err != nil {
		return "", nil, err
	}

	var (
		text  strings.Builder
		calls []llms.ToolCall
	)
	for chunk := range ch {
		switch chunk.Type {
		case "text":
			text.WriteString(chunk.Text)
			// Hold tokens back once a tool call shows up, the final
			// reply comes after execution.
			if live && len(calls) == 0 {
				if err := emit(StreamEvent{Type: "token", Text: chunk.Text}); err != nil {
					return "", nil, err
				}
			}
		case "tool_call":
			if chunk.ToolCall != nil {
				calls = append(calls, *chunk.ToolCall)
			}
		case "error":
			return "", nil, chunk.Error
		}
	}
	return text.String(), calls, nil
}
