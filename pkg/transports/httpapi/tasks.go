package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/focusflowhq/focusflow/pkg/store"
)

type taskResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTaskResponse(task *store.Todo) taskResponse {
	return taskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func (t *Transport) handleListTasks(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	if status := strings.ToLower(q.Get("status")); status != "" && status != store.StatusAll {
		if status != store.StatusPending && status != store.StatusCompleted {
			writeError(w, http.StatusBadRequest, "status must be all, pending or completed")
			return
		}
		tasks, err := t.store.TasksByStatus(userID, status)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not list tasks")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": toTaskResponses(tasks), "total": len(tasks)})
		return
	}

	offset := intParam(q.Get("offset"), 0)
	limit := intParam(q.Get("limit"), 50)
	if limit > 200 {
		limit = 200
	}
	tasks, total, err := t.store.ListTasks(userID, offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list tasks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": toTaskResponses(tasks), "total": total})
}

func toTaskResponses(tasks []store.Todo) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, toTaskResponse(&tasks[i]))
	}
	return out
}

type taskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

func (t *Transport) handleCreateTask(w http.ResponseWriter, r *http.Request, userID string) {
	var req taskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	description := ""
	if req.Description != nil {
		description = *req.Description
	}
	task, err := t.store.CreateTask(userID, *req.Title, description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create task")
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(task))
}

func (t *Transport) handleGetTask(w http.ResponseWriter, r *http.Request, userID string) {
	task, ok := t.taskByPath(w, r, userID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (t *Transport) handleUpdateTask(w http.ResponseWriter, r *http.Request, userID string) {
	task, ok := t.taskByPath(w, r, userID)
	if !ok {
		return
	}
	var req taskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			writeError(w, http.StatusBadRequest, "title must not be empty")
			return
		}
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	if err := t.store.SaveTask(task); err != nil {
		writeError(w, http.StatusInternalServerError, "could not update task")
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (t *Transport) handleCompleteTask(w http.ResponseWriter, r *http.Request, userID string) {
	task, ok := t.taskByPath(w, r, userID)
	if !ok {
		return
	}
	task.Completed = true
	if err := t.store.SaveTask(task); err != nil {
		writeError(w, http.StatusInternalServerError, "could not update task")
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (t *Transport) handleDeleteTask(w http.ResponseWriter, r *http.Request, userID string) {
	task, ok := t.taskByPath(w, r, userID)
	if !ok {
		return
	}
	if err := t.store.DeleteTask(task); err != nil {
		writeError(w, http.StatusInternalServerError, "could not delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// taskByPath loads the task named in the URL. A task owned by another user is
// a 403 here: the REST surface distinguishes forbidden from missing, unlike
// the model-facing tools.
func (t *Transport) taskByPath(w http.ResponseWriter, r *http.Request, userID string) (*store.Todo, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return nil, false
	}
	task, err := t.store.OwnedTask(uint(id), userID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	if errors.Is(err, store.ErrForbidden) {
		writeError(w, http.StatusForbidden, "not authorized to access this task")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load task")
		return nil, false
	}
	return task, true
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
