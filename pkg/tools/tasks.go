package tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/focusflowhq/focusflow/pkg/llm"
	"github.com/focusflowhq/focusflow/pkg/store"
)

// RegisterTaskTools installs the task management tool set against the given
// store. These are the tools the model calls during a chat turn.
func RegisterTaskTools(registry *Registry, st *store.Store) error {
	set := []struct {
		tool    llm.Tool
		handler Handler
	}{
		{
			tool: llm.Tool{
				Name:        "add_task",
				Description: "Create a new task for the user. Returns the new task's id.",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":       map[string]any{"type": "string", "description": "Short title of the task."},
						"description": map[string]any{"type": "string", "description": "Optional longer description."},
					},
					"required": []string{"title"},
				},
			},
			handler: addTask(st),
		},
		{
			tool: llm.Tool{
				Name:        "list_tasks",
				Description: "List the user's tasks, optionally filtered by completion status.",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"status": map[string]any{
							"type":        "string",
							"enum":        []string{store.StatusAll, store.StatusPending, store.StatusCompleted},
							"description": "Filter: all, pending, or completed. Defaults to all.",
						},
					},
				},
			},
			handler: listTasks(st),
		},
		{
			tool: llm.Tool{
				Name:        "complete_task",
				Description: "Mark one of the user's tasks as completed.",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"task_id": map[string]any{"type": "integer", "description": "Id of the task to complete."},
					},
					"required": []string{"task_id"},
				},
			},
			handler: completeTask(st),
		},
		{
			tool: llm.Tool{
				Name:        "delete_task",
				Description: "Delete one of the user's tasks.",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"task_id": map[string]any{"type": "integer", "description": "Id of the task to delete."},
					},
					"required": []string{"task_id"},
				},
			},
			handler: deleteTask(st),
		},
		{
			tool: llm.Tool{
				Name:        "update_task",
				Description: "Change the title or description of one of the user's tasks.",
				Schema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"task_id":     map[string]any{"type": "integer", "description": "Id of the task to update."},
						"title":       map[string]any{"type": "string", "description": "New title."},
						"description": map[string]any{"type": "string", "description": "New description."},
					},
					"required": []string{"task_id"},
				},
			},
			handler: updateTask(st),
		},
	}
	for _, entry := range set {
		if err := registry.Register(entry.tool, entry.handler); err != nil {
			return err
		}
	}
	return nil
}

func addTask(st *store.Store) Handler {
	return func(ctx context.Context, userID string, args map[string]any) (any, error) {
		title, _ := args["title"].(string)
		if strings.TrimSpace(title) == "" {
			return nil, fmt.Errorf("title is required")
		}
		description, _ := args["description"].(string)
		task, err := st.CreateTask(userID, title, description)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"task_id": task.ID,
			"status":  "created",
			"title":   task.Title,
		}, nil
	}
}

func listTasks(st *store.Store) Handler {
	return func(ctx context.Context, userID string, args map[string]any) (any, error) {
		status := store.StatusAll
		if raw, ok := args["status"].(string); ok && raw != "" {
			status = strings.ToLower(raw)
		}
		switch status {
		case store.StatusAll, store.StatusPending, store.StatusCompleted:
		default:
			return nil, fmt.Errorf("unknown status %q", status)
		}
		tasks, err := st.TasksByStatus(userID, status)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(tasks))
		for _, task := range tasks {
			rows = append(rows, map[string]any{
				"id":        task.ID,
				"title":     task.Title,
				"completed": task.Completed,
			})
		}
		return rows, nil
	}
}

func completeTask(st *store.Store) Handler {
	return func(ctx context.Context, userID string, args map[string]any) (any, error) {
		task, err := userTaskArg(st, userID, args)
		if err != nil {
			return nil, err
		}
		task.Completed = true
		if err := st.SaveTask(task); err != nil {
			return nil, err
		}
		return map[string]any{
			"task_id": task.ID,
			"status":  "completed",
			"title":   task.Title,
		}, nil
	}
}

func deleteTask(st *store.Store) Handler {
	return func(ctx context.Context, userID string, args map[string]any) (any, error) {
		task, err := userTaskArg(st, userID, args)
		if err != nil {
			return nil, err
		}
		if err := st.DeleteTask(task); err != nil {
			return nil, err
		}
		return map[string]any{
			"task_id": task.ID,
			"status":  "deleted",
			"title":   task.Title,
		}, nil
	}
}

func updateTask(st *store.Store) Handler {
	return func(ctx context.Context, userID string, args map[string]any) (any, error) {
		task, err := userTaskArg(st, userID, args)
		if err != nil {
			return nil, err
		}
		if title, ok := args["title"].(string); ok && title != "" {
			task.Title = title
		}
		if description, ok := args["description"].(string); ok {
			task.Description = description
		}
		if err := st.SaveTask(task); err != nil {
			return nil, err
		}
		return map[string]any{
			"task_id": task.ID,
			"status":  "updated",
			"title":   task.Title,
		}, nil
	}
}

// userTaskArg resolves the task_id argument against the caller's own tasks.
// Models hand back ids as JSON numbers, so task_id arrives as float64.
func userTaskArg(st *store.Store, userID string, args map[string]any) (*store.Todo, error) {
	raw, ok := args["task_id"]
	if !ok {
		return nil, fmt.Errorf("task_id is required")
	}
	id, err := taskID(raw)
	if err != nil {
		return nil, err
	}
	task, err := st.UserTask(id, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("Task with ID %d not found for this user", id)
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func taskID(raw any) (uint, error) {
	switch v := raw.(type) {
	case float64:
		if v < 0 || v != float64(int64(v)) {
			return 0, fmt.Errorf("task_id must be a whole number, got %v", v)
		}
		return uint(v), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("task_id must not be negative, got %d", v)
		}
		return uint(v), nil
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("task_id must be an integer, got %q", v)
		}
		return uint(n), nil
	default:
		return 0, fmt.Errorf("task_id must be an integer, got %T", raw)
	}
}
