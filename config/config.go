package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
		DebugMode bool   `env:"DEBUG_MODE" envDefault:"false"`

		Server   ServerConfig   `envPrefix:"HTTP_"`
		Database DatabaseConfig `envPrefix:"DB_"`
		Storage  StorageConfig  `envPrefix:"STORAGE_"`
		Auth     AuthConfig     `envPrefix:"AUTH_"`
		Webhook  WebhookConfig  `envPrefix:"WEBHOOK_"`
	}

	ServerConfig struct {
		BindAddress     string        `env:"BIND_ADDRESS" envDefault:"0.0.0.0:8080"`
		TLSDomains      []string      `env:"TLS_DOMAINS" envSeparator:","` // autotls is used when set
		CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
		ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	DatabaseConfig struct {
		MySQLDSN   string `env:"MYSQL_DSN"`                         // MySQL is used if this is set
		SQLiteFile string `env:"SQLITE_FILE" envDefault:"memoria.db"` // otherwise SQLite, unless Mongo is configured
		MongoURI   string `env:"MONGO_URI"`
		MongoDB    string `env:"MONGO_DATABASE" envDefault:"memoria"`
	}

	StorageConfig struct {
		Type          string `env:"TYPE" envDefault:"disk"` // disk or s3
		Path          string `env:"PATH" envDefault:"./data"`
		BaseURL       string `env:"BASE_URL"`
		Bucket        string `env:"BUCKET"`
		Endpoint      string `env:"ENDPOINT"`
		Region        string `env:"REGION" envDefault:"us-east-1"`
		S3Key         string `env:"S3_KEY"`
		S3Secret      string `env:"S3_SECRET"`
		SSEEncryption string `env:"SSE_ENCRYPTION"`
		ReaperQueue   int    `env:"REAPER_QUEUE" envDefault:"1024"`
	}

	AuthConfig struct {
		Issuer        string        `env:"ISSUER"`
		ClientID      string        `env:"CLIENT_ID"`
		ClientSecret  string        `env:"CLIENT_SECRET"`
		RedirectURL   string        `env:"REDIRECT_URL" envDefault:"http://localhost:8080/auth/callback"`
		AfterLoginURL string        `env:"AFTER_LOGIN_URL" envDefault:"/"`
		SessionSecret string        `env:"SESSION_SECRET" envDefault:"change-me-session-secret"`
		SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"720h"`
	}

	WebhookConfig struct {
		Secret string `env:"SECRET"` // svix signing secret, webhooks are disabled when empty
	}
)

// Load reads an optional .env file and then the environment
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read env file: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}
	return cfg, nil
}

func (c *Config) OIDCEnabled() bool {
	return c.Auth.Issuer != "" && c.Auth.ClientID != ""
}
