// Package repositories はデータベース操作を行うリポジトリを提供します。
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-todo-api/internal/database"
	"go-todo-api/internal/models"
)

var (
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrUserNotFound   = errors.New("user not found")
)

// UserRepository はusersテーブルを操作します。
type UserRepository struct {
	DB *database.DB
}

// NewUserRepository は新しいUserRepositoryインスタンスを作成します。
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// Create は新しいユーザーをデータベースに挿入します。
// メールアドレスの一意制約に違反した場合は ErrDuplicateEmail を返します。
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	query := "INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)"
	id, err := r.DB.InsertReturningID(ctx, query, u.Username, u.Email, u.PasswordHash)
	if err != nil {
		if r.DB.Dialect.IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("could not insert user: %w", err)
	}
	u.ID = id

	return u, nil
}

// FindByEmail はメールアドレスでユーザーを検索します。大文字小文字は区別します。
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := r.DB.Dialect.Rebind("SELECT id, username, email, password_hash FROM users WHERE email = ?")

	var u models.User
	err := r.DB.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not query user: %w", err)
	}
	return &u, nil
}
