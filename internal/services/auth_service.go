package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"go-todo-api/internal/models"
	"go-todo-api/internal/repositories"
)

// ErrInvalidCredentials はメールアドレスかパスワードが一致しない場合のエラーです。
// どちらが誤っていたかは区別しません。
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrPasswordTooLong はパスワードがbcryptで扱える長さを超えている場合のエラーです。
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// MaxPasswordBytes はbcryptが受け付けるパスワードの最大バイト数です。
const MaxPasswordBytes = 72

type userRepository interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthService はユーザー登録と認証を扱います。
type AuthService struct {
	userRepo   userRepository
	bcryptCost int
	// 存在しないユーザーでも照合にかかる時間を揃えるためのハッシュ
	dummyHash string
}

// NewAuthService は新しいAuthServiceを作成します。
func NewAuthService(userRepo userRepository, bcryptCost int) *AuthService {
	dummyHash, err := HashPassword("dummy-password", bcryptCost)
	if err != nil {
		log.Warn("Failed to prepare dummy password hash", "err", err)
	}
	return &AuthService{userRepo: userRepo, bcryptCost: bcryptCost, dummyHash: dummyHash}
}

// Register はユーザーを登録します。
// 同じメールアドレスが既にあれば repositories.ErrDuplicateEmail を返します。
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	// 文字数ではなくバイト数で判定する
	if len(password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	_, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, repositories.ErrDuplicateEmail
	case !errors.Is(err, repositories.ErrUserNotFound):
		return nil, fmt.Errorf("could not check existing user: %w", err)
	}

	hashedPassword, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, err
	}

	// 同時登録は一意制約で ErrDuplicateEmail になる
	return s.userRepo.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
	})
}

// Authenticate はメールアドレスとパスワードを照合し、一致したユーザーを返します。
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			if s.dummyHash != "" {
				_ = VerifyPassword(s.dummyHash, password)
			}
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("could not look up user: %w", err)
	}

	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
