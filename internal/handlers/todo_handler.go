package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-todo-api/internal/models"
	"go-todo-api/internal/repositories"
	"go-todo-api/internal/services"
)

// TodoHandler はTodo関連のハンドラーを管理します。
type TodoHandler struct {
	todoService *services.TodoService
}

// NewTodoHandler は新しいTodoHandlerを作成します。
func NewTodoHandler(todoService *services.TodoService) *TodoHandler {
	return &TodoHandler{todoService: todoService}
}

// todoIDParam はパスの :id を正の整数として取り出します。失敗時は400を返します。
func todoIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondMessage(c, http.StatusBadRequest, MsgInvalidTodoID)
		return 0, false
	}
	return id, true
}

// GetTodosHandler は呼び出し元のTodoリストを取得します。
func (h *TodoHandler) GetTodosHandler(c *gin.Context) {
	userID, ok := CallerID(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, MsgUnauthenticated)
		return
	}

	todos, err := h.todoService.GetTodos(c.Request.Context(), userID)
	if err != nil {
		respondInternalError(c, "Failed to fetch todos", err)
		return
	}
	c.JSON(http.StatusOK, models.NewTodoResponses(todos))
}

// GetTodoByIDHandler は指定IDのTodoを取得します。
func (h *TodoHandler) GetTodoByIDHandler(c *gin.Context) {
	id, ok := todoIDParam(c)
	if !ok {
		return
	}

	userID, ok := CallerID(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, MsgUnauthenticated)
		return
	}

	todo, err := h.todoService.GetTodoByID(c.Request.Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrTodoNotFound):
			respondMessage(c, http.StatusNotFound, MsgTodoNotFound)
		case errors.Is(err, services.ErrTodoForbidden):
			respondMessage(c, http.StatusUnauthorized, MsgTodoForbidden)
		default:
			respondInternalError(c, "Failed to fetch todo", err)
		}
		return
	}
	c.JSON(http.StatusOK, models.NewTodoResponse(todo))
}

// CreateTodoHandler は新しいTodoを作成します。
func (h *TodoHandler) CreateTodoHandler(c *gin.Context) {
	userID, ok := CallerID(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, MsgUnauthenticated)
		return
	}

	var req models.TodoCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	todo, err := h.todoService.CreateTodo(c.Request.Context(), req, userID)
	if err != nil {
		respondInternalError(c, "Failed to save todo to database", err)
		return
	}

	c.Header("Location", fmt.Sprintf("/api/todo/%d", todo.ID))
	c.JSON(http.StatusCreated, models.NewTodoResponse(todo))
}

// UpdateTodoHandler はTodoを部分更新します。
// 存在確認を所有者確認より先に行うため、存在しないIDは認証情報に関係なく404になります。
func (h *TodoHandler) UpdateTodoHandler(c *gin.Context) {
	id, ok := todoIDParam(c)
	if !ok {
		return
	}

	var req models.TodoUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	userID, _ := CallerID(c)
	err := h.todoService.UpdateTodo(c.Request.Context(), id, req, userID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrTodoNotFound):
			respondMessage(c, http.StatusNotFound, MsgTodoNotFound)
		case errors.Is(err, services.ErrTodoForbidden):
			respondMessage(c, http.StatusUnauthorized, MsgUnauthorized)
		case errors.Is(err, repositories.ErrTodoConflict):
			respondMessage(c, http.StatusConflict, MsgTodoConflict)
		default:
			respondInternalError(c, "Failed to update todo", err)
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteTodoHandler はTodoを削除します。
func (h *TodoHandler) DeleteTodoHandler(c *gin.Context) {
	id, ok := todoIDParam(c)
	if !ok {
		return
	}

	userID, _ := CallerID(c)
	err := h.todoService.DeleteTodo(c.Request.Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrTodoNotFound):
			respondMessage(c, http.StatusNotFound, MsgTodoNotFound)
		case errors.Is(err, services.ErrTodoForbidden):
			respondMessage(c, http.StatusUnauthorized, MsgUnauthorized)
		default:
			respondInternalError(c, "Failed to delete todo", err)
		}
		return
	}
	c.Status(http.StatusNoContent)
}
