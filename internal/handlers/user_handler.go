package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-todo-api/internal/models"
	"go-todo-api/internal/repositories"
	"go-todo-api/internal/services"
)

// UserHandler はユーザー関連のハンドラーを管理します。
type UserHandler struct {
	authService *services.AuthService
	jwtService  *services.JWTService
}

// NewUserHandler は新しいUserHandlerを作成します。
func NewUserHandler(authService *services.AuthService, jwtService *services.JWTService) *UserHandler {
	return &UserHandler{authService: authService, jwtService: jwtService}
}

// TokenResponse はログイン成功時の本文です。
type TokenResponse struct {
	Token string `json:"Token"`
}

// RegisterHandler はユーザー登録を処理します。登録時にはトークンを発行しません。
func (h *UserHandler) RegisterHandler(c *gin.Context) {
	var req models.UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	_, err := h.authService.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicateEmail):
			respondMessage(c, http.StatusBadRequest, MsgDuplicateEmail)
		case errors.Is(err, services.ErrPasswordTooLong):
			respondMessage(c, http.StatusBadRequest, MsgPasswordTooLong)
		default:
			respondInternalError(c, "Failed to register user", err)
		}
		return
	}

	respondMessage(c, http.StatusOK, MsgRegistered)
}

// LoginHandler はユーザーログインを処理します。
func (h *UserHandler) LoginHandler(c *gin.Context) {
	var req models.UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.authService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			respondMessage(c, http.StatusUnauthorized, MsgInvalidCredentials)
			return
		}
		respondInternalError(c, "Failed to authenticate user", err)
		return
	}

	token, err := h.jwtService.GenerateToken(user)
	if err != nil {
		respondInternalError(c, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}
