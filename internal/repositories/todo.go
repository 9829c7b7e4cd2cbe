package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-todo-api/internal/database"
	"go-todo-api/internal/models"
)

var (
	// ErrTodoNotFound はTODOが見つからない場合のエラーです。
	ErrTodoNotFound = errors.New("todo not found")
	// ErrTodoConflict は読み込み後に他のリクエストが同じTODOを更新した場合のエラーです。
	ErrTodoConflict = errors.New("todo was modified concurrently")
)

const todoColumns = "id, user_id, title, description, created_at, completed_at, version"

// TodoRepository はtodosテーブルを操作します。
type TodoRepository struct {
	DB *database.DB
}

// NewTodoRepository は新しいTodoRepositoryインスタンスを作成します。
func NewTodoRepository(db *database.DB) *TodoRepository {
	return &TodoRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*models.Todo, error) {
	var (
		t         models.Todo
		completed sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.CreatedAt, &completed, &t.Version); err != nil {
		return nil, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	if completed.Valid {
		c := completed.Time.UTC()
		t.CompletedAt = &c
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Create は新しいTodoタスクをデータベースに挿入します。
func (r *TodoRepository) Create(ctx context.Context, t *models.Todo) (*models.Todo, error) {
	// MySQLのDATETIME(6)に合わせてマイクロ秒に丸める
	t.CreatedAt = t.CreatedAt.UTC().Truncate(time.Microsecond)
	t.Version = 1

	query := "INSERT INTO todos (user_id, title, description, created_at, completed_at, version) VALUES (?, ?, ?, ?, ?, ?)"
	id, err := r.DB.InsertReturningID(ctx, query,
		t.UserID, t.Title, t.Description, t.CreatedAt, nullTime(t.CompletedAt), t.Version)
	if err != nil {
		return nil, fmt.Errorf("could not insert todo: %w", err)
	}
	t.ID = id

	return t, nil
}

// FindByID は指定されたIDのTodoタスクをデータベースから取得します。
func (r *TodoRepository) FindByID(ctx context.Context, id int64) (*models.Todo, error) {
	query := r.DB.Dialect.Rebind("SELECT " + todoColumns + " FROM todos WHERE id = ?")

	t, err := scanTodo(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("could not query todo: %w", err)
	}
	return t, nil
}

// FindByUserID は指定ユーザーのTodoをすべて取得します。順序は保証しません。
func (r *TodoRepository) FindByUserID(ctx context.Context, userID int64) ([]*models.Todo, error) {
	query := r.DB.Dialect.Rebind("SELECT " + todoColumns + " FROM todos WHERE user_id = ?")

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("could not query todos: %w", err)
	}
	defer rows.Close()

	todos := []*models.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan todo: %w", err)
		}
		todos = append(todos, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}

	return todos, nil
}

// Update は読み込み時のバージョンが変わっていない場合だけTodoを書き換えます。
// 他の更新が先に行われていた場合は ErrTodoConflict を返します。
// 成功するとt.Versionを進めます。
func (r *TodoRepository) Update(ctx context.Context, t *models.Todo) error {
	query := r.DB.Dialect.Rebind(
		"UPDATE todos SET title = ?, description = ?, completed_at = ?, version = version + 1 WHERE id = ? AND version = ?")

	result, err := r.DB.ExecContext(ctx, query, t.Title, t.Description, nullTime(t.CompletedAt), t.ID, t.Version)
	if err != nil {
		return fmt.Errorf("could not update todo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTodoConflict
	}

	t.Version++
	return nil
}

// Delete は指定されたIDのTodoタスクを削除します。
func (r *TodoRepository) Delete(ctx context.Context, id int64) error {
	query := r.DB.Dialect.Rebind("DELETE FROM todos WHERE id = ?")

	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("could not delete todo: %w", err)
	}

	// 削除された行数を確認
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTodoNotFound
	}

	return nil
}
