package repository

import (
	"context"

	"github.com/tidylist/api/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	// CreateUser inserts a user and fills in the assigned id. A unique
	// email violation surfaces as ErrDuplicate.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// TodoRepository persists todos. List results are ordered by ascending
// id so pagination is deterministic.
type TodoRepository interface {
	CreateTodo(ctx context.Context, todo *domain.Todo) error
	GetTodoByID(ctx context.Context, id int64) (*domain.Todo, error)
	UpdateTodo(ctx context.Context, todo *domain.Todo) error
	DeleteTodo(ctx context.Context, id int64) error
	ListTodosByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Todo, error)
	CountTodosByUser(ctx context.Context, userID int64) (int, error)
}
