package store

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	// ErrNotFound is returned for rows that do not exist or are owned by
	// another user; the two cases are deliberately indistinguishable so ids
	// cannot be probed across accounts.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden marks a row that exists but belongs to another user. Only
	// the task REST surface uses it; conversation access always collapses to
	// ErrNotFound.
	ErrForbidden = errors.New("not authorized")
)

type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite database at dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&User{}, &Todo{}, &Conversation{}, &Message{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Seed inserts a test user with three sample todos. It is idempotent; a
// second call is a no-op.
func (s *Store) Seed(passwordHash string) error {
	const email = "test@example.com"
	if _, err := s.UserByEmail(email); err == nil {
		slog.Info("seed_skipped", "reason", "test user exists")
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	user, err := s.CreateUser(email, passwordHash, "Test User")
	if err != nil {
		return err
	}
	samples := []Todo{
		{UserID: user.ID, Title: "Complete project setup", Description: "Set up the initial project structure and dependencies"},
		{UserID: user.ID, Title: "Implement authentication", Description: "Create login and signup functionality", Completed: true},
		{UserID: user.ID, Title: "Add task management", Description: "Implement CRUD operations for tasks"},
	}
	if err := s.db.Create(&samples).Error; err != nil {
		return fmt.Errorf("seed todos: %w", err)
	}
	slog.Info("seed_completed", "user_id", user.ID, "todos", len(samples))
	return nil
}
