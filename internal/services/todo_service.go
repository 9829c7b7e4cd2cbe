package services

import (
	"context"
	"errors"
	"time"

	"go-todo-api/internal/models"
)

// ErrTodoForbidden は他のユーザーのTodoを操作しようとした場合のエラーです。
var ErrTodoForbidden = errors.New("todo belongs to another user")

type todoRepository interface {
	Create(ctx context.Context, t *models.Todo) (*models.Todo, error)
	FindByID(ctx context.Context, id int64) (*models.Todo, error)
	FindByUserID(ctx context.Context, userID int64) ([]*models.Todo, error)
	Update(ctx context.Context, t *models.Todo) error
	Delete(ctx context.Context, id int64) error
}

// TodoService はTodo関連のビジネスロジックを扱います。
// userID が 0 の呼び出し元はどのTodoの所有者にもなりません。
type TodoService struct {
	todoRepo todoRepository
	now      func() time.Time
}

// NewTodoService は新しいTodoServiceを作成します。
func NewTodoService(todoRepo todoRepository) *TodoService {
	return &TodoService{todoRepo: todoRepo, now: time.Now}
}

// GetTodos はユーザーのTodoを取得します。
func (s *TodoService) GetTodos(ctx context.Context, userID int64) ([]*models.Todo, error) {
	return s.todoRepo.FindByUserID(ctx, userID)
}

// GetTodoByID は指定IDのTodoを取得し、所有者を確認します。
func (s *TodoService) GetTodoByID(ctx context.Context, id, userID int64) (*models.Todo, error) {
	todo, err := s.todoRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownedBy(todo, userID) {
		return nil, ErrTodoForbidden
	}
	return todo, nil
}

// CreateTodo は新しいTodoを作成します。
func (s *TodoService) CreateTodo(ctx context.Context, req models.TodoCreateRequest, userID int64) (*models.Todo, error) {
	return s.todoRepo.Create(ctx, &models.Todo{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   s.now().UTC(),
	})
}

// UpdateTodo はTodoを部分更新します。
// 空のタイトル・説明は無視し、完了日時は指定があれば常に上書きします。
func (s *TodoService) UpdateTodo(ctx context.Context, id int64, req models.TodoUpdateRequest, userID int64) error {
	todo, err := s.todoRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !ownedBy(todo, userID) {
		return ErrTodoForbidden
	}

	if req.Title != "" {
		todo.Title = req.Title
	}
	if req.Description != "" {
		todo.Description = req.Description
	}
	if req.CompletedAt != nil {
		completed := req.CompletedAt.Time.UTC()
		todo.CompletedAt = &completed
	}

	return s.todoRepo.Update(ctx, todo)
}

// DeleteTodo はTodoを削除します。
func (s *TodoService) DeleteTodo(ctx context.Context, id, userID int64) error {
	todo, err := s.todoRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !ownedBy(todo, userID) {
		return ErrTodoForbidden
	}
	return s.todoRepo.Delete(ctx, id)
}

func ownedBy(todo *models.Todo, userID int64) bool {
	return userID != 0 && todo.UserID == userID
}
