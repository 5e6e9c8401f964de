package mock

import (
	"context"
	"sync"

	"github.com/focusflowhq/focusflow/pkg/llm"
)

// Step is one scripted model turn: either a canned response or an error.
type Step struct {
	Response llm.Response
	Err      error
}

// Adapter replays a fixed script of responses, one per Generate call. It
// records every Context it was handed so tests can assert what the
// orchestrator submitted each round.
type Adapter struct {
	mu     sync.Mutex
	script []Step
	calls  []llm.Context
}

func New(script ...Step) *Adapter {
	return &Adapter{script: script}
}

// Text builds a step that answers with plain text and no tool calls.
func Text(text string) Step {
	return Step{Response: llm.Response{Text: text, FinishReason: "stop"}}
}

// Calls builds a step that requests the given tool invocations.
func Calls(calls ...llm.ToolCall) Step {
	return Step{Response: llm.Response{FinishReason: "tool_calls", ToolCalls: calls}}
}

// Fail builds a step that errors out, simulating a transport failure.
func Fail(err error) Step {
	return Step{Err: err}
}

func (a *Adapter) Name() string { return "mock" }

func (a *Adapter) Generate(ctx context.Context, input llm.Context) (llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return llm.Response{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, input)
	idx := len(a.calls) - 1
	if idx >= len(a.script) {
		// Script exhausted; keep answering so tests that over-run the
		// script see a stable terminal response instead of a panic.
		return llm.Response{Text: "ok", FinishReason: "stop"}, nil
	}
	step := a.script[idx]
	if step.Err != nil {
		return llm.Response{}, step.Err
	}
	return step.Response, nil
}

// Calls returns a copy of every Context passed to Generate.
func (a *Adapter) Contexts() []llm.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]llm.Context, len(a.calls))
	copy(out, a.calls)
	return out
}

// CallCount reports how many times Generate ran.
func (a *Adapter) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}
