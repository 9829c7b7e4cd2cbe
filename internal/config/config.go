// Package config はアプリケーション設定を読み込みます。
//
// 優先順位 (後勝ち):
//  1. デフォルト値
//  2. TOML設定ファイル (CONFIG_FILE または カレントディレクトリの config.toml)
//  3. 環境変数 (.env の内容を含む)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// 対応しているデータベースドライバ名です。
const (
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// MinJWTKeyLength はHS256署名鍵の最小バイト数です。
const MinJWTKeyLength = 32

const defaultConfigFile = "config.toml"

// Config はアプリケーション全体の設定です。
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	JWT      JWTConfig      `toml:"jwt"`
	Auth     AuthConfig     `toml:"auth"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig はHTTPサーバーの設定です。
type ServerConfig struct {
	Port         int      `toml:"port"`
	GinMode      string   `toml:"gin_mode"`
	CORSOrigins  []string `toml:"cors_origins"`
	MaxBodyBytes int64    `toml:"max_body_bytes"` // リクエスト本文の上限
}

// DatabaseConfig はデータベース接続の設定です。
// DSN が空でなければ個別の接続項目より優先されます。
type DatabaseConfig struct {
	Driver          string        `toml:"driver"`
	DSN             string        `toml:"dsn"`
	User            string        `toml:"user"`
	Pass            string        `toml:"pass"`
	Host            string        `toml:"host"`
	Port            string        `toml:"port"`
	Name            string        `toml:"name"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	AutoMigrate     bool          `toml:"auto_migrate"`
}

// JWTConfig はトークン発行の設定です。
type JWTConfig struct {
	Key      string        `toml:"key"`
	Issuer   string        `toml:"issuer"`
	Audience string        `toml:"audience"`
	Expiry   time.Duration `toml:"expiry"`
}

// AuthConfig はパスワードハッシュの設定です。
type AuthConfig struct {
	BcryptCost int `toml:"bcrypt_cost"`
}

// LogConfig はロガーの設定です。
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Timestamps bool   `toml:"timestamps"`
}

// Default はデフォルト値で埋めたConfigを返します。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			GinMode:      "release",
			CORSOrigins:  []string{"http://localhost:3000"},
			MaxBodyBytes: 1 << 20,
		},
		Database: DatabaseConfig{
			Driver:          DriverMySQL,
			Host:            "127.0.0.1",
			Port:            "3306",
			Name:            "todo",
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		JWT: JWTConfig{
			Issuer:   "go-todo-api",
			Audience: "go-todo-api",
			Expiry:   time.Hour,
		},
		Auth: AuthConfig{
			BcryptCost: 10,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			Timestamps: true,
		},
	}
}

// Load は .env、設定ファイル、環境変数から設定を読み込み、検証します。
func Load() (*Config, error) {
	// .env は無くてもよい
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()

	if path := configFilePath(); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func configFilePath() string {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

// applyEnv は環境変数で設定を上書きします。
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a duration", key, v))
				return
			}
			*dst = d
		}
	}
	integer64 := func(key string, dst *int64) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}

	integer("PORT", &cfg.Server.Port)
	str("GIN_MODE", &cfg.Server.GinMode)
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	integer64("MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)

	str("DB_DRIVER", &cfg.Database.Driver)
	str("DB_DSN", &cfg.Database.DSN)
	str("DB_USER", &cfg.Database.User)
	str("DB_PASS", &cfg.Database.Pass)
	str("DB_HOST", &cfg.Database.Host)
	str("DB_PORT", &cfg.Database.Port)
	str("DB_NAME", &cfg.Database.Name)
	integer("DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	integer("DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns)
	duration("DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)
	boolean("DB_AUTO_MIGRATE", &cfg.Database.AutoMigrate)

	str("JWT_KEY", &cfg.JWT.Key)
	str("JWT_ISSUER", &cfg.JWT.Issuer)
	str("JWT_AUDIENCE", &cfg.JWT.Audience)
	duration("JWT_EXPIRY", &cfg.JWT.Expiry)

	integer("BCRYPT_COST", &cfg.Auth.BcryptCost)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	boolean("LOG_TIMESTAMPS", &cfg.Log.Timestamps)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate は設定値を検証し、問題をすべてまとめて返します。
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("gin mode %q must be debug, release or test", c.Server.GinMode))
	}
	if len(c.Server.CORSOrigins) == 0 {
		errs = append(errs, errors.New("at least one cors origin is required"))
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			errs = append(errs, fmt.Errorf("cors origin %q must start with http:// or https://", origin))
		}
	}

	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("max body bytes %d must be positive", c.Server.MaxBodyBytes))
	}

	switch c.Database.Driver {
	case DriverMySQL, DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("database driver %q must be one of %s, %s, %s",
			c.Database.Driver, DriverMySQL, DriverSQLite, DriverPostgres))
	}
	if c.Database.DSN == "" && c.Database.Name == "" {
		errs = append(errs, errors.New("database name or dsn is required"))
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		errs = append(errs, errors.New("database connection limits must not be negative"))
	}

	if len(c.JWT.Key) < MinJWTKeyLength {
		errs = append(errs, fmt.Errorf("jwt key must be at least %d bytes (got %d)", MinJWTKeyLength, len(c.JWT.Key)))
	}
	if c.JWT.Issuer == "" {
		errs = append(errs, errors.New("jwt issuer is required"))
	}
	if c.JWT.Audience == "" {
		errs = append(errs, errors.New("jwt audience is required"))
	}
	if c.JWT.Expiry <= 0 {
		errs = append(errs, fmt.Errorf("jwt expiry %s must be positive", c.JWT.Expiry))
	}

	// bcrypt.MinCost(4) 〜 bcrypt.MaxCost(31)
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("bcrypt cost %d must be between 4 and 31", c.Auth.BcryptCost))
	}

	switch c.Log.Format {
	case "text", "json", "logfmt":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be text, json or logfmt", c.Log.Format))
	}

	return errors.Join(errs...)
}
