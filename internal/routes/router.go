// Package routes はルーティングとミドルウェアを提供します。
package routes

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go-todo-api/internal/config"
	"go-todo-api/internal/database"
	"go-todo-api/internal/handlers"
	"go-todo-api/internal/repositories"
	"go-todo-api/internal/services"
)

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(db *database.DB, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(), Recovery(), BodyLimit(cfg.Server.MaxBodyBytes))

	// CORS対策
	corsConfig := cors.DefaultConfig()
	if slices.Contains(cfg.Server.CORSOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	}
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Location", RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsConfig))

	// リポジトリ
	todoRepo := repositories.NewTodoRepository(db)
	userRepo := repositories.NewUserRepository(db)

	// サービス
	todoService := services.NewTodoService(todoRepo)
	authService := services.NewAuthService(userRepo, cfg.Auth.BcryptCost)
	jwtService := services.NewJWTService(cfg.JWT)

	// ハンドラー
	userHandler := handlers.NewUserHandler(authService, jwtService)
	todoHandler := handlers.NewTodoHandler(todoService)
	healthHandler := handlers.NewHealthHandler(db)

	// ルーティング
	r.GET("/api/health", healthHandler.Health)

	user := r.Group("/api/user")
	{
		user.POST("/registro", userHandler.RegisterHandler)
		user.POST("/Login", userHandler.LoginHandler)
	}

	todo := r.Group("/api/todo")
	todo.Use(AuthMiddleware(jwtService))
	{
		todo.GET("", todoHandler.GetTodosHandler)
		todo.GET("/:id", todoHandler.GetTodoByIDHandler)
		todo.POST("", todoHandler.CreateTodoHandler)
		todo.PUT("/:id", todoHandler.UpdateTodoHandler)
		todo.DELETE("/:id", todoHandler.DeleteTodoHandler)
	}

	return r
}
