package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-todo-api/internal/handlers"
	"go-todo-api/internal/models"
	"go-todo-api/internal/repositories"
	"go-todo-api/internal/services"
	"go-todo-api/testutil"
)

func loginBoth(t *testing.T, r *gin.Engine) (normal, other string) {
	t.Helper()
	normal, err := testutil.LoginAndGetToken(t, r, testutil.NormalUserEmail, testutil.NormalUserPassword)
	require.NoError(t, err)
	other, err = testutil.LoginAndGetToken(t, r, testutil.OtherUserEmail, testutil.OtherUserPassword)
	require.NoError(t, err)
	return normal, other
}

func TestCreateTodo(t *testing.T) {
	db, r, todoRepo, _ := testutil.SetupTestDB(t)
	defer db.Close()
	token, _ := loginBoth(t, r)

	t.Run("success", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodPost, "/api/todo", token, map[string]string{
			"title":       "Comprar leite",
			"description": "Integral",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var created models.TodoResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.NotZero(t, created.ID)
		assert.Equal(t, "Comprar leite", created.Title)
		assert.Equal(t, "Integral", created.Description)
		assert.Nil(t, created.CompletedAt)
		assert.Equal(t, fmt.Sprintf("/api/todo/%d", created.ID), w.Header().Get("Location"))

		createdAt, err := time.Parse(models.TimestampLayout, created.CreatedAt)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC(), createdAt, 5*time.Second)

		// 所有者は normal_user (ID 1)
		stored, err := todoRepo.FindByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.UserID)
	})

	t.Run("title of exactly 100 characters", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodPost, "/api/todo", token, map[string]string{
			"title": strings.Repeat("é", 100), "description": "d",
		})
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("description larger than 64 KiB", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodPost, "/api/todo", token, map[string]string{
			"title": "longa", "description": strings.Repeat("x", 100<<10),
		})
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("body over the size limit", func(t *testing.T) {
		limit := testutil.TestConfig().Server.MaxBodyBytes
		w := testutil.PerformRequest(t, r, http.MethodPost, "/api/todo", token, map[string]string{
			"title": "enorme", "description": strings.Repeat("x", int(limit)),
		})
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.JSONEq(t, `{"Message":"`+handlers.MsgRequestTooLarge+`"}`, w.Body.String())
	})

	tests := []struct {
		name        string
		body        any
		wantMessage string
	}{
		{"missing title", map[string]string{"description": "d"}, "O campo Title é obrigatório."},
		{"missing description", map[string]string{"title": "t"}, "O campo Description é obrigatório."},
		{"title too long", map[string]string{"title": strings.Repeat("a", 101), "description": "d"}, "O campo Title deve ter no máximo 100 caracteres."},
		{"malformed json", `{"title":`, handlers.MsgInvalidRequestBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.PerformRequest(t, r, http.MethodPost, "/api/todo", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantMessage, decodeMessage(t, w.Body.Bytes()))
		})
	}

	t.Run("without token", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodPost, "/api/todo", "", map[string]string{"title": "t", "description": "d"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetTodos(t *testing.T) {
	db, r, _, _ := testutil.SetupTestDB(t)
	defer db.Close()
	tokenNormal, tokenOther := loginBoth(t, r)

	t.Run("empty list renders as array", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodGet, "/api/todo", tokenNormal, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	todo1 := testutil.CreateTestTodo(t, r, tokenNormal, "Normal User Todo 1", "d1")
	todo2 := testutil.CreateTestTodo(t, r, tokenNormal, "Normal User Todo 2", "d2")
	otherTodo := testutil.CreateTestTodo(t, r, tokenOther, "Other User Todo", "d3")

	t.Run("only the caller's todos", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodGet, "/api/todo", tokenNormal, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var todos []models.TodoResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &todos))

		ids := make([]int64, 0, len(todos))
		for _, todo := range todos {
			ids = append(ids, todo.ID)
		}
		assert.ElementsMatch(t, []int64{todo1.ID, todo2.ID}, ids)
		assert.NotContains(t, ids, otherTodo.ID)
	})

	t.Run("response keys", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodGet, "/api/todo", tokenOther, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var raw []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
		require.Len(t, raw, 1)
		for _, key := range []string{"Id", "Title", "Description", "CreatedAt", "CompletedAt"} {
			assert.Contains(t, raw[0], key)
		}
		assert.Len(t, raw[0], 5)
		assert.Nil(t, raw[0]["CompletedAt"])
	})
}

func TestGetTodoByID(t *testing.T) {
	db, r, _, _ := testutil.SetupTestDB(t)
	defer db.Close()
	tokenNormal, tokenOther := loginBoth(t, r)
	todo := testutil.CreateTestTodo(t, r, tokenNormal, "Minha tarefa", "Só minha")

	t.Run("owner", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodGet, fmt.Sprintf("/api/todo/%d", todo.ID), tokenNormal, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got models.TodoResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, *todo, got)
	})

	t.Run("another user", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodGet, fmt.Sprintf("/api/todo/%d", todo.ID), tokenOther, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, handlers.MsgTodoForbidden, decodeMessage(t, w.Body.Bytes()))
	})

	t.Run("not found", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodGet, "/api/todo/999", tokenNormal, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, handlers.MsgTodoNotFound, decodeMessage(t, w.Body.Bytes()))
	})

	for _, id := range []string{"abc", "0", "-1", "1.5"} {
		t.Run("invalid id "+id, func(t *testing.T) {
			w := testutil.PerformRequest(t, r, http.MethodGet, "/api/todo/"+id, tokenNormal, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, handlers.MsgInvalidTodoID, decodeMessage(t, w.Body.Bytes()))
		})
	}
}

func TestUpdateTodo(t *testing.T) {
	db, r, _, _ := testutil.SetupTestDB(t)
	defer db.Close()
	tokenNormal, tokenOther := loginBoth(t, r)
	todo := testutil.CreateTestTodo(t, r, tokenNormal, "Original", "Descrição original")
	path := fmt.Sprintf("/api/todo/%d", todo.ID)

	get := func(t *testing.T) models.TodoResponse {
		t.Helper()
		w := testutil.PerformRequest(t, r, http.MethodGet, path, tokenNormal, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got models.TodoResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		return got
	}

	t.Run("partial update", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodPut, path, tokenNormal, map[string]string{"title": "Atualizado"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())

		got := get(t)
		assert.Equal(t, "Atualizado", got.Title)
		assert.Equal(t, "Descrição original", got.Description)
		assert.Equal(t, todo.CreatedAt, got.CreatedAt)
		assert.Nil(t, got.CompletedAt)
	})

	for _, in := range []string{"2024-06-01T10:20:30Z", "2024-06-01T07:20:30-03:00", "2024-06-01T10:20:30", "2024-06-01 10:20:30"} {
		t.Run("completedAt "+in, func(t *testing.T) {
			w := testutil.PerformRequest(t, r, http.MethodPut, path, tokenNormal, map[string]string{"completedAt": in})
			require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

			got := get(t)
			require.NotNil(t, got.CompletedAt)
			assert.Equal(t, "2024-06-01 10:20:30", *got.CompletedAt)
			assert.Equal(t, "Atualizado", got.Title)
		})
	}

	t.Run("another user", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodPut, path, tokenOther, map[string]string{"title": "Invadido"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, handlers.MsgUnauthorized, decodeMessage(t, w.Body.Bytes()))
		assert.Equal(t, "Atualizado", get(t).Title)
	})

	t.Run("not found", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodPut, "/api/todo/999", tokenNormal, map[string]string{"title": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, handlers.MsgTodoNotFound, decodeMessage(t, w.Body.Bytes()))
	})

	t.Run("title too long", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodPut, path, tokenNormal, map[string]string{"title": strings.Repeat("a", 101)})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed completedAt", func(t *testing.T) {
		w := testutil.PerformRequest(t, r, http.MethodPut, path, tokenNormal, map[string]string{"completedAt": "amanhã"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeleteTodo(t *testing.T) {
	db, r, _, _ := testutil.SetupTestDB(t)
	defer db.Close()
	tokenNormal, tokenOther := loginBoth(t, r)
	todo := testutil.CreateTestTodo(t, r, tokenNormal, "Apagar", "d")
	path := fmt.Sprintf("/api/todo/%d", todo.ID)

	w := testutil.PerformRequest(t, r, http.MethodDelete, path, tokenOther, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, handlers.MsgUnauthorized, decodeMessage(t, w.Body.Bytes()))

	w = testutil.PerformRequest(t, r, http.MethodDelete, path, tokenNormal, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = testutil.PerformRequest(t, r, http.MethodGet, path, tokenNormal, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 削除は冪等ではない
	w = testutil.PerformRequest(t, r, http.MethodDelete, path, tokenNormal, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// トークンに id クレームが無い場合、一覧・取得・作成は先に401、更新・削除は先に存在確認を行う。
func TestTokenWithoutUserID(t *testing.T) {
	db, r, _, _ := testutil.SetupTestDB(t)
	defer db.Close()
	tokenNormal, _ := loginBoth(t, r)
	todo := testutil.CreateTestTodo(t, r, tokenNormal, "Existente", "d")
	existing := fmt.Sprintf("/api/todo/%d", todo.ID)

	anonymous := testutil.SignToken(t, testutil.ValidClaims())

	tests := []struct {
		name        string
		method      string
		path        string
		body        any
		wantStatus  int
		wantMessage string
	}{
		{"list", http.MethodGet, "/api/todo", nil, http.StatusUnauthorized, handlers.MsgUnauthenticated},
		{"get existing", http.MethodGet, existing, nil, http.StatusUnauthorized, handlers.MsgUnauthenticated},
		{"get missing", http.MethodGet, "/api/todo/999", nil, http.StatusUnauthorized, handlers.MsgUnauthenticated},
		{"create", http.MethodPost, "/api/todo", map[string]string{"title": "t", "description": "d"}, http.StatusUnauthorized, handlers.MsgUnauthenticated},
		{"update missing", http.MethodPut, "/api/todo/999", map[string]string{"title": "t"}, http.StatusNotFound, handlers.MsgTodoNotFound},
		{"update existing", http.MethodPut, existing, map[string]string{"title": "t"}, http.StatusUnauthorized, handlers.MsgUnauthorized},
		{"delete missing", http.MethodDelete, "/api/todo/999", nil, http.StatusNotFound, handlers.MsgTodoNotFound},
		{"delete existing", http.MethodDelete, existing, nil, http.StatusUnauthorized, handlers.MsgUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.PerformRequest(t, r, tt.method, tt.path, anonymous, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMessage, decodeMessage(t, w.Body.Bytes()))
		})
	}
}

// racingTodoRepo は読み込みと書き込みの間に別のリクエストが同じTodoを更新した状況を再現します。
type racingTodoRepo struct {
	*repositories.TodoRepository
}

func (r racingTodoRepo) Update(ctx context.Context, t *models.Todo) error {
	competing, err := r.TodoRepository.FindByID(ctx, t.ID)
	if err != nil {
		return err
	}
	competing.Description = "escrito por outra requisição"
	if err := r.TodoRepository.Update(ctx, competing); err != nil {
		return err
	}
	return r.TodoRepository.Update(ctx, t)
}

func TestUpdateTodo_Conflict(t *testing.T) {
	db, _, todoRepo, _ := testutil.SetupTestDB(t)
	defer db.Close()

	created, err := todoRepo.Create(context.Background(), &models.Todo{
		UserID: 1, Title: "Concorrida", Description: "original", CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	todoHandler := handlers.NewTodoHandler(services.NewTodoService(racingTodoRepo{todoRepo}))
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(handlers.ContextKeyUserID, int64(1))
	})
	r.PUT("/api/todo/:id", todoHandler.UpdateTodoHandler)

	w := testutil.PerformRequest(t, r, http.MethodPut, fmt.Sprintf("/api/todo/%d", created.ID), "", map[string]string{"title": "Perdedora"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, handlers.MsgTodoConflict, decodeMessage(t, w.Body.Bytes()))

	// 競合した書き込みは反映されない
	stored, err := todoRepo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Concorrida", stored.Title)
	assert.Equal(t, "escrito por outra requisição", stored.Description)
}

func TestHealth(t *testing.T) {
	db, r, _, _ := testutil.SetupTestDB(t)

	w := testutil.PerformRequest(t, r, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "up", stats["status"])

	require.NoError(t, db.Close())
	w = testutil.PerformRequest(t, r, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
