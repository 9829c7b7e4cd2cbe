package models

// User はユーザーのデータベース構造体を表します。
type User struct {
	ID           int64  `json:"Id"`
	Username     string `json:"UserName"`
	Email        string `json:"Email"`
	PasswordHash string `json:"-"` // JSONに出さない
}

// UserRegisterRequest は登録リクエストの本文です。
type UserRegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"` // bcryptは72バイトまで
}

// UserLoginRequest はログインリクエストの本文です。
type UserLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// JWTClaims は検証済みトークンから取り出した呼び出し元の情報です。
// UserID が 0 のときはトークンに id クレームが無かったことを表します。
type JWTClaims struct {
	UserID int64
	Email  string
}
