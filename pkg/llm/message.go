package llm

// Internal role vocabulary. Provider adapters translate these to whatever the
// wire protocol expects (Gemini calls the assistant "model"); the translation
// never leaks outside the adapter.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role        string
	Content     string
	ToolCalls   []ToolCall   // assistant message requesting tool invocations
	ToolResults []ToolResult // tool message carrying results back to the model
}

// ToolResult is one entry of a turn's audit trail. Result holds the tool's
// payload on success, or a map with a single "error" key on failure; a tool
// never raises through the orchestration loop.
type ToolResult struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Result    any            `json:"result"`
}

// FailureResult builds the failure payload for a tool that could not run.
func FailureResult(msg string) map[string]any {
	return map[string]any{"error": msg}
}

// Failed reports whether the result carries a failure payload.
func (r ToolResult) Failed() bool {
	m, ok := r.Result.(map[string]any)
	if !ok {
		return false
	}
	_, hasErr := m["error"]
	return hasErr
}

// FailureMessage returns the failure text, or "" for a success result.
func (r ToolResult) FailureMessage() string {
	m, ok := r.Result.(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := m["error"].(string)
	return msg
}
