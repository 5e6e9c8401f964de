package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/focusflowhq/focusflow/pkg/llm"
	"github.com/focusflowhq/focusflow/pkg/logging"
	"github.com/focusflowhq/focusflow/pkg/metrics"
)

// Executor runs tool invocations against a Registry and converts every
// outcome, including panics and unknown names, into an llm.ToolResult so a
// single bad call never aborts an agent turn.
type Executor struct {
	registry *Registry
	observer metrics.Observer
	log      *slog.Logger
}

func NewExecutor(registry *Registry, observer metrics.Observer) *Executor {
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	return &Executor{
		registry: registry,
		observer: observer,
		log:      logging.NewComponentLogger("tools"),
	}
}

// Execute runs the named tool. The returned ToolResult always carries the
// tool name and the arguments as received from the model, so the audit trail
// reflects what the model asked for even when execution fails.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any, userID string) llm.ToolResult {
	result := llm.ToolResult{Tool: name, Arguments: args}

	handler, ok := e.registry.Resolve(name)
	if !ok {
		e.log.Warn("tool_not_registered", "tool", name)
		result.Result = llm.FailureResult(fmt.Sprintf("Tool %s is not registered.", name))
		e.observer.RecordEvent(metrics.ToolEvent(name, true, 0))
		return result
	}

	// The model sometimes echoes user_id back as an argument. Identity
	// comes from the authenticated session; drop the model's copy.
	callArgs := make(map[string]any, len(args))
	for k, v := range args {
		if k == "user_id" {
			continue
		}
		callArgs[k] = v
	}

	start := time.Now()
	payload, err := e.run(ctx, handler, userID, callArgs)
	elapsed := time.Since(start)

	if err != nil {
		e.log.Warn("tool_failed", "tool", name, "error", err, "elapsed_ms", elapsed.Milliseconds())
		result.Result = llm.FailureResult(err.Error())
		e.observer.RecordEvent(metrics.ToolEvent(name, true, elapsed))
		return result
	}

	e.log.Debug("tool_executed", "tool", name, "elapsed_ms", elapsed.Milliseconds())
	result.Result = payload
	e.observer.RecordEvent(metrics.ToolEvent(name, false, elapsed))
	return result
}

func (e *Executor) run(ctx context.Context, handler Handler, userID string, args map[string]any) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return handler(ctx, userID, args)
}
