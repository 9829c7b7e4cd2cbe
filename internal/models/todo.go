// Package models はリクエスト、レスポンス、永続化の構造体を定義します。
package models

import "time"

// Todo はデータベース上のタスクです。
type Todo struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	CreatedAt   time.Time
	CompletedAt *time.Time
	Version     int64 // 楽観的排他制御用。APIには出さない
}

// TodoCreateRequest は作成リクエストの本文です。
type TodoCreateRequest struct {
	Title       string `json:"title" binding:"required,max=100"`
	Description string `json:"description" binding:"required"`
}

// TodoUpdateRequest は部分更新リクエストの本文です。
// 空文字のフィールドは変更しません。
type TodoUpdateRequest struct {
	Title       string     `json:"title" binding:"max=100"`
	Description string     `json:"description"`
	CompletedAt *Timestamp `json:"completedAt"`
}

// TodoResponse はクライアントに返すTodoの表現です。
type TodoResponse struct {
	ID          int64   `json:"Id"`
	Title       string  `json:"Title"`
	Description string  `json:"Description"`
	CreatedAt   string  `json:"CreatedAt"`
	CompletedAt *string `json:"CompletedAt"`
}

// NewTodoResponse はTodoをレスポンス形式に変換します。
func NewTodoResponse(t *Todo) TodoResponse {
	resp := TodoResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		CreatedAt:   FormatTimestamp(t.CreatedAt),
	}
	if t.CompletedAt != nil {
		completed := FormatTimestamp(*t.CompletedAt)
		resp.CompletedAt = &completed
	}
	return resp
}

// NewTodoResponses はTodoのスライスを変換します。nilでも空配列を返します。
func NewTodoResponses(todos []*Todo) []TodoResponse {
	out := make([]TodoResponse, 0, len(todos))
	for _, t := range todos {
		out = append(out, NewTodoResponse(t))
	}
	return out
}
