package llm

import "context"

type Tool struct {
	Name        string
	Description string
	Schema      any
}

type Context struct {
	System   string
	Messages []Message
	Tools    []Tool
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Response struct {
	Text         string
	Usage        Usage
	FinishReason string
	ToolCalls    []ToolCall
}

// Adapter is a vendor-agnostic boundary to a chat model. Generate submits the
// full context (system instruction, message history, tool schemas) and returns
// one model turn; callers re-submit the grown context for follow-up turns.
type Adapter interface {
	Name() string
	Generate(ctx context.Context, input Context) (Response, error)
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}
