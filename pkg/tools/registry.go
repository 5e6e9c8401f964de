package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/focusflowhq/focusflow/pkg/llm"
)

// Handler executes one tool invocation. The user identity is supplied by the
// orchestration layer from the authenticated request, never from model
// output.
type Handler func(ctx context.Context, userID string, args map[string]any) (any, error)

// Registry maps tool names to handlers and keeps the schema set advertised to
// the model in registration order.
type Registry struct {
	mu       sync.RWMutex
	order    []llm.Tool
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(tool llm.Tool, handler Handler) error {
	name := strings.TrimSpace(tool.Name)
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if handler == nil {
		return fmt.Errorf("tool %s has no handler", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	tool.Name = name
	r.handlers[name] = handler
	r.order = append(r.order, tool)
	return nil
}

// Schemas returns the advertised tool set in registration order. The slice is
// a copy; callers may not mutate registry state through it.
func (r *Registry) Schemas() []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]llm.Tool, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Resolve(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}
