package domain

import "time"

// Todo is a task record owned by exactly one user.
type Todo struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	CreatedAt   time.Time
}
