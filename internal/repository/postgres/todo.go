package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/tidylist/api/internal/domain"
	"github.com/tidylist/api/internal/repository"
)

// CreateTodo inserts a todo and fills in the database-assigned id.
func (r *Repository) CreateTodo(ctx context.Context, todo *domain.Todo) error {
	const query = `INSERT INTO todos (user_id, title, description, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	row := r.pool.QueryRow(ctx, query, todo.UserID, todo.Title, todo.Description, todo.CreatedAt)
	return row.Scan(&todo.ID)
}

// GetTodoByID fetches a todo regardless of owner.
func (r *Repository) GetTodoByID(ctx context.Context, id int64) (*domain.Todo, error) {
	const query = `SELECT id, user_id, title, description, created_at FROM todos WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var t domain.Todo
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// UpdateTodo overwrites title and description in place.
func (r *Repository) UpdateTodo(ctx context.Context, todo *domain.Todo) error {
	const query = `UPDATE todos SET title = $1, description = $2 WHERE id = $3`
	tag, err := r.pool.Exec(ctx, query, todo.Title, todo.Description, todo.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteTodo removes a todo permanently.
func (r *Repository) DeleteTodo(ctx context.Context, id int64) error {
	const query = `DELETE FROM todos WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListTodosByUser returns one page of the user's todos in ascending id
// order.
func (r *Repository) ListTodosByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Todo, error) {
	const query = `SELECT id, user_id, title, description, created_at
		FROM todos WHERE user_id = $1
		ORDER BY id ASC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := make([]domain.Todo, 0)
	for rows.Next() {
		var t domain.Todo
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

// CountTodosByUser returns the user's total todo count.
func (r *Repository) CountTodosByUser(ctx context.Context, userID int64) (int, error) {
	const query = `SELECT COUNT(1) FROM todos WHERE user_id = $1`
	row := r.pool.QueryRow(ctx, query, userID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
