package db

import (
	"errors"
	"time"
)

var (
	// ErrTodoNotFound is returned when a todo id does not match a live row
	ErrTodoNotFound = errors.New("todo not found")

	// ErrEmailTaken is returned when registering an email that already exists
	ErrEmailTaken = errors.New("email already registered")

	// ErrPositionOverflow is returned when a position would leave the int64 range
	ErrPositionOverflow = errors.New("todo position out of range")
)

// Todo represents a todo record
type Todo struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Done        bool   `json:"done"`
	Position    int64  `json:"position"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// PositionUpdate moves one todo to a new position
type PositionUpdate struct {
	ID       int64
	Position int64
}

// User represents a registered user. PasswordHash and Salt are hex encoded.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Salt         string `json:"-"`
	CreatedAt    int64  `json:"createdAt"`
}

// Session represents an authentication session record
type Session struct {
	ID         string `json:"id"`
	UserID     int64  `json:"userId"`
	CreatedAt  int64  `json:"createdAt"`
	ExpiresAt  int64  `json:"expiresAt"`
	LastUsedAt int64  `json:"lastUsedAt"`
}

// Setting represents a settings record
type Setting struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}

// NowMs returns the current time as Unix milliseconds (int64)
func NowMs() int64 {
	return time.Now().UnixMilli()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
