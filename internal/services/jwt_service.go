package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-todo-api/internal/config"
	"go-todo-api/internal/models"
)

// tokenClaims はトークンに載せるクレームです。
// id は発行時は文字列ですが、数値で届いても受け付けます。
type tokenClaims struct {
	UserID any    `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTService はJWTトークンの生成と検証を扱います。
type JWTService struct {
	key      []byte
	issuer   string
	audience string
	expiry   time.Duration
}

// NewJWTService は新しいJWTServiceを作成します。鍵の長さは config.Validate で検証済みの前提です。
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		key:      []byte(cfg.Key),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		expiry:   cfg.Expiry,
	}
}

// GenerateToken はユーザーのJWTトークンを生成します。
func (s *JWTService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID: strconv.FormatInt(user.ID, 10),
		Name:   user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken はJWTトークンを検証し、クレームを返します。
// id クレームが無い、または整数でない場合は UserID が 0 になります。
func (s *JWTService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(token *jwt.Token) (any, error) {
			return s.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	result := &models.JWTClaims{Email: claims.Name}
	if result.Email == "" {
		result.Email = claims.Subject
	}
	result.UserID = parseUserID(claims.UserID)
	return result, nil
}

// parseUserID は id クレームを正の整数として解釈します。解釈できなければ 0 です。
func parseUserID(v any) int64 {
	var id int64
	switch v := v.(type) {
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		id = n
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 {
			return 0
		}
		id = int64(v)
	}
	if id <= 0 {
		return 0
	}
	return id
}
