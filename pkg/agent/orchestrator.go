package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/focusflowhq/focusflow/pkg/errorsx"
	"github.com/focusflowhq/focusflow/pkg/llm"
	"github.com/focusflowhq/focusflow/pkg/logging"
	"github.com/focusflowhq/focusflow/pkg/metrics"
	"github.com/focusflowhq/focusflow/pkg/tools"
)

// DefaultMaxRounds caps the number of model calls a single turn may make.
// Each round is one Generate plus the execution of whatever tools it asked
// for; a model that keeps requesting tools runs out of budget rather than
// looping forever.
const DefaultMaxRounds = 8

// DefaultFallbackText is returned when the model executed tools but came
// back with an empty final message.
const DefaultFallbackText = "I've updated your tasks. Is there anything else you'd like to do?"

// DefaultBudgetText is returned when a turn hits the round budget before the
// model produced a final answer.
const DefaultBudgetText = "I made several changes but couldn't finish everything in one go. Ask me to continue if something is still missing."

// Stop reasons recorded on TurnResult.
const (
	StopModelText   = "model_text"
	StopRoundBudget = "round_budget"
)

type Config struct {
	SystemPrompt string
	MaxRounds    int
	FallbackText string
	BudgetText   string
}

func (c Config) withDefaults() Config {
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	if c.FallbackText == "" {
		c.FallbackText = DefaultFallbackText
	}
	if c.BudgetText == "" {
		c.BudgetText = DefaultBudgetText
	}
	return c
}

// TurnResult is the outcome of one user turn: the assistant's final text plus
// the audit trail of every tool invocation made along the way.
type TurnResult struct {
	ResponseText string
	ToolCalls    []llm.ToolResult
	Rounds       int
	StopReason   string
	Usage        llm.Usage
}

// Orchestrator drives the tool-calling loop between a model adapter and the
// tool executor.
type Orchestrator struct {
	adapter  llm.Adapter
	registry *tools.Registry
	executor *tools.Executor
	observer metrics.Observer
	cfg      Config
	log      *slog.Logger
}

func New(adapter llm.Adapter, registry *tools.Registry, executor *tools.Executor, observer metrics.Observer, cfg Config) *Orchestrator {
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	return &Orchestrator{
		adapter:  adapter,
		registry: registry,
		executor: executor,
		observer: observer,
		cfg:      cfg.withDefaults(),
		log:      logging.NewComponentLogger("agent"),
	}
}

// Run executes one user turn. history is the prior conversation in order;
// message is the new user input. On a model transport error the returned
// TurnResult still carries the tool calls executed so far, so the caller can
// persist a truthful audit trail alongside the error.
func (o *Orchestrator) Run(ctx context.Context, userID, message string, history []llm.Message) (TurnResult, error) {
	start := time.Now()

	input := llm.Context{
		System: o.cfg.SystemPrompt,
		Tools:  o.registry.Schemas(),
	}
	input.Messages = append(input.Messages, history...)
	input.Messages = append(input.Messages, llm.Message{Role: llm.RoleUser, Content: message})

	result := TurnResult{}
	for round := 1; round <= o.cfg.MaxRounds; round++ {
		result.Rounds = round

		resp, err := o.adapter.Generate(ctx, input)
		if err != nil {
			o.log.Error("model_generate_failed",
				"provider", o.adapter.Name(),
				"round", round,
				"error", err,
			)
			o.observe(userID, "error", result, start)
			return result, errorsx.Wrap(err, errorsx.ReasonLLMGenerate)
		}
		result.Usage = addUsage(result.Usage, resp.Usage)

		if len(resp.ToolCalls) == 0 {
			result.ResponseText = resp.Text
			// The acknowledgement only makes sense if tools actually ran;
			// an empty reply with no tool calls stays empty.
			if result.ResponseText == "" && len(result.ToolCalls) > 0 {
				result.ResponseText = o.cfg.FallbackText
			}
			result.StopReason = StopModelText
			o.log.Info("turn_completed",
				"user_id", userID,
				"rounds", round,
				"tool_calls", len(result.ToolCalls),
				"stop_reason", result.StopReason,
			)
			o.observe(userID, result.StopReason, result, start)
			return result, nil
		}

		o.log.Debug("tool_round", "round", round, "requested", len(resp.ToolCalls))

		// Tools run sequentially in the order the model requested them,
		// so writes from one call are visible to the next.
		roundResults := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			tr := o.executor.Execute(ctx, call.Name, call.Arguments, userID)
			roundResults = append(roundResults, tr)
			result.ToolCalls = append(result.ToolCalls, tr)
		}

		input.Messages = append(input.Messages,
			llm.Message{Role: llm.RoleAssistant, Content: resp.Text, ToolCalls: resp.ToolCalls},
			llm.Message{Role: llm.RoleTool, ToolResults: roundResults},
		)
	}

	// Budget exhausted. The work already done is real, so this is a normal
	// completion with an honest explanation, not an error.
	result.ResponseText = o.cfg.BudgetText
	result.StopReason = StopRoundBudget
	o.log.Warn("turn_round_budget_exhausted",
		"user_id", userID,
		"max_rounds", o.cfg.MaxRounds,
		"tool_calls", len(result.ToolCalls),
	)
	o.observe(userID, result.StopReason, result, start)
	return result, nil
}

func (o *Orchestrator) observe(userID, stopReason string, result TurnResult, start time.Time) {
	o.observer.RecordEvent(metrics.TurnEvent(userID, stopReason, result.Rounds, len(result.ToolCalls), time.Since(start)))
}

func addUsage(a, b llm.Usage) llm.Usage {
	return llm.Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
	}
}
