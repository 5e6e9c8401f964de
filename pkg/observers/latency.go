package observers

import (
	"log/slog"
	"sync"

	"github.com/focusflowhq/focusflow/pkg/metrics"
)

// LatencyObserver aggregates per-turn timings and logs a rollup line after
// each agent turn: total turn latency plus accumulated tool time, so slow
// tools are distinguishable from a slow model.
type LatencyObserver struct {
	mu        sync.Mutex
	toolMS    float64
	toolCount int
	log       *slog.Logger
}

func NewLatencyObserver(log *slog.Logger) *LatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LatencyObserver{log: log}
}

func (o *LatencyObserver) RecordEvent(ev metrics.Event) {
	switch ev.Name {
	case "tool_executed":
		o.mu.Lock()
		o.toolMS += ev.Value
		o.toolCount++
		o.mu.Unlock()
	case "agent_turn":
		o.mu.Lock()
		toolMS := o.toolMS
		toolCount := o.toolCount
		o.toolMS = 0
		o.toolCount = 0
		o.mu.Unlock()
		o.log.Info("turn_latency",
			"user_id", ev.Tags["user_id"],
			"stop_reason", ev.Tags["stop_reason"],
			"turn_ms", int64(ev.Value),
			"tool_ms", int64(toolMS),
			"tool_count", toolCount,
		)
	}
}
