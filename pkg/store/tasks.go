package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Task status filters accepted by TasksByStatus.
const (
	StatusAll       = "all"
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

func (s *Store) CreateTask(userID, title, description string) (*Todo, error) {
	task := &Todo{UserID: userID, Title: title, Description: description}
	if err := s.db.Create(task).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// TasksByStatus lists a user's tasks with an optional completion filter.
func (s *Store) TasksByStatus(userID, status string) ([]Todo, error) {
	q := s.db.Where("user_id = ?", userID)
	switch status {
	case StatusPending:
		q = q.Where("completed = ?", false)
	case StatusCompleted:
		q = q.Where("completed = ?", true)
	}
	var tasks []Todo
	if err := q.Order("created_at").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListTasks pages through a user's tasks, newest first, returning the total
// count alongside the page.
func (s *Store) ListTasks(userID string, offset, limit int) ([]Todo, int64, error) {
	var total int64
	if err := s.db.Model(&Todo{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	var tasks []Todo
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

// OwnedTask loads a task and enforces ownership: a task under another user
// comes back as ErrForbidden, a missing id as ErrNotFound. The task REST
// endpoints surface the distinction.
func (s *Store) OwnedTask(id uint, userID string) (*Todo, error) {
	var task Todo
	err := s.db.First(&task, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	if task.UserID != userID {
		return nil, ErrForbidden
	}
	return &task, nil
}

// UserTask loads a task scoped to its owner; cross-user ids come back as
// ErrNotFound.
func (s *Store) UserTask(id uint, userID string) (*Todo, error) {
	var task Todo
	err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return &task, nil
}

func (s *Store) SaveTask(task *Todo) error {
	if err := s.db.Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (s *Store) DeleteTask(task *Todo) error {
	if err := s.db.Delete(task).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
