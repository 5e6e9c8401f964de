package metrics

import "time"

type Event struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

type Observer interface {
	RecordEvent(ev Event)
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(Event) {}

// TurnEvent describes one completed agent turn.
func TurnEvent(userID, stopReason string, rounds, toolCalls int, elapsed time.Duration) Event {
	return Event{
		Name:  "agent_turn",
		Time:  time.Now(),
		Value: float64(elapsed.Milliseconds()),
		Tags:  map[string]string{"user_id": userID, "stop_reason": stopReason},
		Fields: map[string]any{
			"rounds":     rounds,
			"tool_calls": toolCalls,
		},
	}
}

// ToolEvent describes one tool execution inside a turn.
func ToolEvent(tool string, failed bool, elapsed time.Duration) Event {
	return Event{
		Name:   "tool_executed",
		Time:   time.Now(),
		Value:  float64(elapsed.Milliseconds()),
		Tags:   map[string]string{"tool": tool},
		Fields: map[string]any{"failed": failed},
	}
}
