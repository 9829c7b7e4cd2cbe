package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"go-todo-api/internal/config"
	"go-todo-api/internal/database"
	"go-todo-api/internal/logger"
	"go-todo-api/internal/routes"
)

func gracefulShutdown(apiServer *http.Server, db *database.DB, done chan<- struct{}) {
	// SIGINT / SIGTERM を待つ
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	// 処理中のリクエストには5秒の猶予を与える
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		log.Error("Server forced to shutdown", "err", err)
	}

	if err := db.Close(); err != nil {
		log.Error("Error closing database connection pool", "err", err)
	} else {
		log.Info("Database connection pool closed")
	}

	close(done)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", "err", err)
	}

	log.SetDefault(logger.New(cfg.Log, os.Stderr))
	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "driver", cfg.Database.Driver, "err", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal("Failed to migrate database", "err", err)
		}
	}

	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      routes.SetupRouter(db, cfg),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	done := make(chan struct{})
	go gracefulShutdown(apiServer, db, done)

	log.Info("Server listening", "addr", apiServer.Addr)
	if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("HTTP server error", "err", err)
	}

	<-done
	log.Info("Graceful shutdown complete")
}
