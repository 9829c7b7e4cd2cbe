package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// クライアントに返すメッセージ
const (
	MsgUnauthenticated     = "Usuário não autenticado"
	MsgUnauthorized        = "Usuário não autorizado"
	MsgTodoNotFound        = "Tarefa não encontrada"
	MsgTodoForbidden       = "Você não tem permissão para acessar esta tarefa"
	MsgTodoConflict        = "Erro ao atualizar a tarefa."
	MsgRegistered          = "Usuário registrado com sucesso!"
	MsgDuplicateEmail      = "Este e-mail já está registrado."
	MsgInvalidCredentials  = "E-mail ou senha inválidos."
	MsgPasswordTooLong     = "O campo Password deve ter no máximo 72 bytes."
	MsgInvalidTodoID       = "Identificador de tarefa inválido."
	MsgInvalidRequestBody  = "Corpo da requisição inválido."
	MsgRequestTooLarge     = "Corpo da requisição muito grande."
	MsgInternalServerError = "Erro interno do servidor."
)

// ContextKeyUserID は認証ミドルウェアが呼び出し元のユーザーIDを保存するキーです。
const ContextKeyUserID = "user_id"

// ContextKeyUserEmail は呼び出し元のメールアドレスを保存するキーです。
const ContextKeyUserEmail = "user_email"

// ContextKeyRequestID はリクエストIDを保存するキーです。
const ContextKeyRequestID = "request_id"

// MessageResponse はすべてのエラーと単純な成功応答の本文です。
type MessageResponse struct {
	Message string `json:"Message"`
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, MessageResponse{Message: message})
}

// respondInternalError は詳細をログに残し、クライアントには一般的なメッセージだけ返します。
func respondInternalError(c *gin.Context, msg string, err error) {
	log.Error(msg, "err", err, "path", c.FullPath(), "request_id", c.GetString(ContextKeyRequestID))
	respondMessage(c, http.StatusInternalServerError, MsgInternalServerError)
}

// CallerID はコンテキストから呼び出し元のユーザーIDを取り出します。
func CallerID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// respondBindError は本文の上限超過なら413、それ以外は400を返します。
func respondBindError(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		respondMessage(c, http.StatusRequestEntityTooLarge, MsgRequestTooLarge)
		return
	}
	respondMessage(c, http.StatusBadRequest, bindErrorMessage(err))
}

// bindErrorMessage はバインドエラーを利用者向けのメッセージにします。
func bindErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return MsgInvalidRequestBody
	}

	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		messages = append(messages, fieldErrorMessage(fe))
	}
	return strings.Join(messages, " ")
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("O campo %s é obrigatório.", fe.Field())
	case "email":
		return fmt.Sprintf("O campo %s não é um e-mail válido.", fe.Field())
	case "max":
		return fmt.Sprintf("O campo %s deve ter no máximo %s caracteres.", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("O campo %s é inválido.", fe.Field())
	}
}
