package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/focusflowhq/focusflow/pkg/llm"
	"github.com/focusflowhq/focusflow/pkg/metrics"
	"github.com/focusflowhq/focusflow/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tools.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testUser(t *testing.T, st *store.Store) string {
	t.Helper()
	user, err := st.CreateUser("tools@example.com", "hash", "Tools Tester")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user.ID
}

func taskExecutor(t *testing.T, st *store.Store) (*Executor, *metrics.MemoryObserver) {
	t.Helper()
	registry := NewRegistry()
	if err := RegisterTaskTools(registry, st); err != nil {
		t.Fatalf("register task tools: %v", err)
	}
	observer := metrics.NewMemoryObserver()
	return NewExecutor(registry, observer), observer
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	handler := func(ctx context.Context, userID string, args map[string]any) (any, error) {
		return nil, nil
	}
	if err := registry.Register(llm.Tool{Name: "ping"}, handler); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := registry.Register(llm.Tool{Name: "ping"}, handler); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if err := registry.Register(llm.Tool{Name: "  "}, handler); err == nil {
		t.Fatal("expected empty name to fail")
	}
	if err := registry.Register(llm.Tool{Name: "pong"}, nil); err == nil {
		t.Fatal("expected nil handler to fail")
	}
}

func TestRegistrySchemasKeepOrder(t *testing.T) {
	st := openTestStore(t)
	registry := NewRegistry()
	if err := RegisterTaskTools(registry, st); err != nil {
		t.Fatalf("register: %v", err)
	}
	want := []string{"add_task", "list_tasks", "complete_task", "delete_task", "update_task"}
	schemas := registry.Schemas()
	if len(schemas) != len(want) {
		t.Fatalf("got %d schemas, want %d", len(schemas), len(want))
	}
	for i, name := range want {
		if schemas[i].Name != name {
			t.Fatalf("schema %d: got %s, want %s", i, schemas[i].Name, name)
		}
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	st := openTestStore(t)
	exec, _ := taskExecutor(t, st)

	result := exec.Execute(context.Background(), "launch_rocket", map[string]any{"target": "moon"}, "u1")
	if result.Tool != "launch_rocket" {
		t.Fatalf("tool name: got %s", result.Tool)
	}
	if !result.Failed() {
		t.Fatal("expected failure result")
	}
	if got, want := result.FailureMessage(), "Tool launch_rocket is not registered."; got != want {
		t.Fatalf("failure message: got %q, want %q", got, want)
	}
}

func TestExecuteStripsModelUserID(t *testing.T) {
	st := openTestStore(t)
	userID := testUser(t, st)
	exec, _ := taskExecutor(t, st)

	result := exec.Execute(context.Background(), "add_task", map[string]any{
		"title":   "buy milk",
		"user_id": "someone-else",
	}, userID)
	if result.Failed() {
		t.Fatalf("add_task failed: %s", result.FailureMessage())
	}
	tasks, err := st.TasksByStatus(userID, store.StatusAll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "buy milk" {
		t.Fatalf("task not created for authenticated user: %+v", tasks)
	}
	// The audit trail keeps the arguments as the model sent them.
	if result.Arguments["user_id"] != "someone-else" {
		t.Fatal("expected audit arguments unchanged")
	}
}

func TestExecuteRecoversPanics(t *testing.T) {
	registry := NewRegistry()
	err := registry.Register(llm.Tool{Name: "boom"}, func(ctx context.Context, userID string, args map[string]any) (any, error) {
		panic("kaboom")
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	exec := NewExecutor(registry, nil)
	result := exec.Execute(context.Background(), "boom", nil, "u1")
	if !result.Failed() {
		t.Fatal("expected panic to surface as failure")
	}
}

func TestTaskToolLifecycle(t *testing.T) {
	st := openTestStore(t)
	userID := testUser(t, st)
	exec, observer := taskExecutor(t, st)
	ctx := context.Background()

	created := exec.Execute(ctx, "add_task", map[string]any{"title": "write report", "description": "q3 numbers"}, userID)
	if created.Failed() {
		t.Fatalf("add: %s", created.FailureMessage())
	}
	payload := created.Result.(map[string]any)
	if payload["status"] != "created" || payload["title"] != "write report" {
		t.Fatalf("create payload: %+v", payload)
	}
	// Model-side ids arrive as float64 after JSON decoding.
	id := float64(payload["task_id"].(uint))

	updated := exec.Execute(ctx, "update_task", map[string]any{"task_id": id, "title": "write the report"}, userID)
	if updated.Failed() {
		t.Fatalf("update: %s", updated.FailureMessage())
	}
	if got := updated.Result.(map[string]any); got["status"] != "updated" || got["title"] != "write the report" {
		t.Fatalf("update payload: %+v", got)
	}

	completed := exec.Execute(ctx, "complete_task", map[string]any{"task_id": id}, userID)
	if completed.Failed() {
		t.Fatalf("complete: %s", completed.FailureMessage())
	}
	if got := completed.Result.(map[string]any); got["status"] != "completed" {
		t.Fatalf("complete payload: %+v", got)
	}

	listed := exec.Execute(ctx, "list_tasks", map[string]any{"status": "completed"}, userID)
	if listed.Failed() {
		t.Fatalf("list: %s", listed.FailureMessage())
	}
	rows := listed.Result.([]map[string]any)
	if len(rows) != 1 || rows[0]["completed"] != true || rows[0]["title"] != "write the report" {
		t.Fatalf("list rows: %+v", rows)
	}

	deleted := exec.Execute(ctx, "delete_task", map[string]any{"task_id": id}, userID)
	if deleted.Failed() {
		t.Fatalf("delete: %s", deleted.FailureMessage())
	}
	remaining := exec.Execute(ctx, "list_tasks", nil, userID)
	if rows := remaining.Result.([]map[string]any); len(rows) != 0 {
		t.Fatalf("expected empty list, got %+v", rows)
	}

	events := observer.Events()
	if len(events) == 0 {
		t.Fatal("expected tool events to be observed")
	}
	for _, ev := range events {
		if ev.Name != "tool_executed" {
			t.Fatalf("unexpected event name %s", ev.Name)
		}
	}
}

func TestTaskToolsScopeToOwner(t *testing.T) {
	st := openTestStore(t)
	owner := testUser(t, st)
	other, err := st.CreateUser("other@example.com", "hash", "Other")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	task, err := st.CreateTask(owner, "private", "")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	exec, _ := taskExecutor(t, st)
	result := exec.Execute(context.Background(), "complete_task", map[string]any{"task_id": float64(task.ID)}, other.ID)
	if !result.Failed() {
		t.Fatal("expected cross-user completion to fail")
	}
	wantMsg := fmt.Sprintf("Task with ID %d not found for this user", task.ID)
	if got := result.FailureMessage(); got != wantMsg {
		t.Fatalf("failure message: got %q, want %q", got, wantMsg)
	}
}
