// Package logger はcharmbracelet/logを使った構造化ロガーを構築します。
package logger

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"go-todo-api/internal/config"
)

// Prefix はすべてのログ行に付くプレフィックスです。
const Prefix = "todo-api"

// New は設定からロガーを作成します。
func New(cfg config.LogConfig, w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(cfg.Level),
		Formatter:       ParseFormatter(cfg.Format),
		ReportTimestamp: cfg.Timestamps,
		Prefix:          Prefix,
	})
}

// ParseLevel は文字列をログレベルに変換します。不明な値は info になります。
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// ParseFormatter は文字列をフォーマッタに変換します。
func ParseFormatter(format string) log.Formatter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
