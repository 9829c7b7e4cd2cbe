// Package testutil はテスト用のデータベースとルーターを用意します。
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-todo-api/internal/config"
	"go-todo-api/internal/database"
	"go-todo-api/internal/models"
	"go-todo-api/internal/repositories"
	"go-todo-api/internal/routes"
	"go-todo-api/internal/services"
)

// テスト用の署名鍵と既定ユーザー
const (
	TestJWTKey = "test-signing-key-0123456789abcdef"

	NormalUserEmail    = "normal_user@example.com"
	NormalUserPassword = "password123"
	OtherUserEmail     = "other_user@example.com"
	OtherUserPassword  = "password456"
)

// TestConfig はテスト用の設定を返します。bcryptは最小コストです。
func TestConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.GinMode = gin.TestMode
	cfg.Database.Driver = config.DriverSQLite
	cfg.JWT.Key = TestJWTKey
	cfg.Auth.BcryptCost = bcrypt.MinCost
	return cfg
}

// OpenTestDB はテストごとに独立したインメモリSQLiteを開き、スキーマを作成します。
func OpenTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString()),
	})
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(context.Background()), "Failed to migrate test database")
	return db
}

// SetupTestDB はテスト用のデータベースを用意し、テストユーザーを投入し、本番と同じルーターを返します。
// normal_user が ID 1、other_user が ID 2 になります。
func SetupTestDB(t *testing.T) (*database.DB, *gin.Engine, *repositories.TodoRepository, *repositories.UserRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := OpenTestDB(t)
	userRepo := repositories.NewUserRepository(db)
	todoRepo := repositories.NewTodoRepository(db)

	CreateTestUser(t, userRepo, "normal_user", NormalUserEmail, NormalUserPassword)
	CreateTestUser(t, userRepo, "other_user", OtherUserEmail, OtherUserPassword)

	router := routes.SetupRouter(db, TestConfig())
	return db, router, todoRepo, userRepo
}

// CreateTestUser はユーザーを直接データベースに作成します。
func CreateTestUser(t *testing.T, userRepo *repositories.UserRepository, username, email, password string) *models.User {
	t.Helper()

	hashedPassword, err := services.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)

	createdUser, err := userRepo.Create(context.Background(), &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
	})
	require.NoError(t, err)
	require.NotZero(t, createdUser.ID)
	return createdUser
}

// PerformRequest はJSON本文とトークンを付けてリクエストを送ります。
// body が nil なら本文なし、string ならそのまま、それ以外はJSONに変換します。
func PerformRequest(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// LoginAndGetToken はログインしてトークンを取得します。
func LoginAndGetToken(t *testing.T, router *gin.Engine, email, password string) (string, error) {
	t.Helper()

	resp := PerformRequest(t, router, http.MethodPost, "/api/user/Login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.Code != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d: %s", resp.Code, resp.Body.String())
	}

	var loginRes map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &loginRes); err != nil {
		return "", fmt.Errorf("failed to unmarshal login response: %w", err)
	}

	token, ok := loginRes["Token"].(string)
	if !ok {
		return "", errors.New("token not found or not a string in login response")
	}
	return token, nil
}

// CreateTestTodo はAPI経由でTODOを作成します。
func CreateTestTodo(t *testing.T, router *gin.Engine, token, title, description string) *models.TodoResponse {
	t.Helper()

	resp := PerformRequest(t, router, http.MethodPost, "/api/todo", token, map[string]string{
		"title":       title,
		"description": description,
	})
	require.Equal(t, http.StatusCreated, resp.Code, "TODO作成に失敗しました: %s", resp.Body.String())

	var created models.TodoResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	return &created
}

// SignToken はテスト用の設定の鍵で任意のクレームに署名します。
func SignToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestJWTKey))
	require.NoError(t, err)
	return token
}

// ValidClaims はテスト用の設定で受理される登録済みクレームを返します。
func ValidClaims() jwt.RegisteredClaims {
	cfg := TestConfig().JWT
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   NormalUserEmail,
		Issuer:    cfg.Issuer,
		Audience:  jwt.ClaimStrings{cfg.Audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}
