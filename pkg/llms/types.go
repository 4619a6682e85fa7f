// Package llms is the gateway to the OpenAI-compatible inference
// servers: generative chat (with tool calling and streaming), vision
// and embeddings.
package llms

// Message is one turn in a chat conversation.
type Message struct {
	Role       string     // system, user, assistant, tool
	Content    string
	Images     [][]byte   // raw image bytes, attached as data URIs
	ToolCalls  []ToolCall // set on assistant turns that invoked tools
	ToolCallID string     // set on tool turns
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolDefinition describes a callable tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// StreamChunk is one unit of a streaming response.
type StreamChunk struct {
	Type     string // text, tool_call, done, error
	Text     string
	ToolCall *ToolCall
	Tokens   int
	Error    error
}

// System, User, Assistant and Tool build plain text messages.
func System(content string) Message    { return Message{Role: "system", Content: content} }
func User(content string) Message      { return Message{Role: "user", Content: content} }
func Assistant(content string) Message { return Message{Role: "assistant", Content: content} }

func ToolResult(callID, content string) Message {
	return Message{Role: "tool", Content: content, ToolCallID: callID}
}

// AssistantToolCalls builds the assistant turn that carries tool calls.
func AssistantToolCalls(calls []ToolCall) Message {
	return Message{Role: "assistant", ToolCalls: calls}
}
