package todo

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/tidylist/api/internal/domain"
	"github.com/tidylist/api/internal/repository"
)

var (
	// ErrNotFound signals the todo id does not exist.
	ErrNotFound = errors.New("todo not found")
	// ErrForbidden signals the todo exists but belongs to another user.
	// Existence is deliberately not hidden: a non-owner gets 403, not 404.
	ErrForbidden = errors.New("forbidden")
)

// Pagination bounds. Out-of-range values clamp rather than fail: page
// below 1 becomes 1, limit below 1 becomes DefaultLimit, limit above
// MaxLimit becomes MaxLimit.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is one page of a user's todos plus the echoed pagination
// parameters and the user's full todo count.
type Page struct {
	Items []domain.Todo
	Page  int
	Limit int
	Total int
}

// Service implements owner-scoped todo CRUD. Every operation takes the
// caller's resolved user as the authorization context.
type Service struct {
	todos  repository.TodoRepository
	logger *slog.Logger
}

// New constructs a Service.
func New(todos repository.TodoRepository, logger *slog.Logger) Service {
	return Service{todos: todos, logger: logger}
}

// Create persists a new todo owned by the caller. Title and description
// are stored verbatim; an empty title is accepted.
func (s Service) Create(ctx context.Context, owner *domain.User, title, description string) (*domain.Todo, error) {
	todo := &domain.Todo{
		UserID:      owner.ID,
		Title:       title,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.todos.CreateTodo(ctx, todo); err != nil {
		return nil, err
	}
	s.logger.Info("todo created", "todo_id", todo.ID, "user_id", owner.ID)
	return todo, nil
}

// List returns one page of the caller's todos in ascending id order,
// along with the caller's total count.
func (s Service) List(ctx context.Context, owner *domain.User, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	total, err := s.todos.CountTodosByUser(ctx, owner.ID)
	if err != nil {
		return Page{}, err
	}
	offset := (page - 1) * limit
	items, err := s.todos.ListTodosByUser(ctx, owner.ID, limit, offset)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Page: page, Limit: limit, Total: total}, nil
}

// Update overwrites title and description of the caller's todo, both
// stored verbatim like Create.
func (s Service) Update(ctx context.Context, owner *domain.User, id int64, title, description string) (*domain.Todo, error) {
	todo, err := s.ownedTodo(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	todo.Title = title
	todo.Description = description
	if err := s.todos.UpdateTodo(ctx, todo); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return todo, nil
}

// Delete removes the caller's todo permanently.
func (s Service) Delete(ctx context.Context, owner *domain.User, id int64) error {
	if _, err := s.ownedTodo(ctx, owner, id); err != nil {
		return err
	}
	if err := s.todos.DeleteTodo(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.logger.Info("todo deleted", "todo_id", id, "user_id", owner.ID)
	return nil
}

func (s Service) ownedTodo(ctx context.Context, owner *domain.User, id int64) (*domain.Todo, error) {
	todo, err := s.todos.GetTodoByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if todo.UserID != owner.ID {
		return nil, ErrForbidden
	}
	return todo, nil
}
