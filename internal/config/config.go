package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Store drivers understood by app.OpenStore.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Config holds every runtime setting of the service.
type Config struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`

	Store StoreConfig `toml:"store"`
	Auth  AuthConfig  `toml:"auth"`
	Log   LogConfig   `toml:"log"`
	SMTP  SMTPConfig  `toml:"smtp"`
	HTTP  HTTPConfig  `toml:"http"`
}

type StoreConfig struct {
	Driver        string `toml:"driver"`
	SQLitePath    string `toml:"sqlite_path"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// SMTPConfig is considered disabled while Host is empty.
type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

// HTTPConfig tunes the API middleware. A zero RateLimitRPS disables limiting.
type HTTPConfig struct {
	CORSOrigins    []string `toml:"cors_origins"`
	RateLimitRPS   float64  `toml:"rate_limit_rps"`
	RateLimitBurst int      `toml:"rate_limit_burst"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() *Config {
	return &Config{
		Addr:      ":5000",
		StaticDir: "web/dist",
		Store: StoreConfig{
			Driver:        StoreSQLite,
			SQLitePath:    "data/taskoverflow.db",
			MongoDatabase: "taskoverflow",
		},
		Log: LogConfig{Level: "info"},
		SMTP: SMTPConfig{
			Port: 587,
		},
		HTTP: HTTPConfig{
			CORSOrigins:    []string{"*"},
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
	}
}

// Load builds the configuration from defaults, the optional TOML file at
// path (or TASKOVERFLOW_CONFIG), a .env file in the working directory and
// finally the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("TASKOVERFLOW_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Addr = ":" + port
	}
	c.Addr = EnvOrDefault("TASKOVERFLOW_ADDR", c.Addr)
	c.StaticDir = EnvOrDefault("TASKOVERFLOW_STATIC_DIR", c.StaticDir)

	c.Store.Driver = EnvOrDefault("TASKOVERFLOW_STORE", c.Store.Driver)
	c.Store.SQLitePath = EnvOrDefault("TASKOVERFLOW_DB_PATH", c.Store.SQLitePath)
	c.Store.MongoURI = EnvOrDefault("MONGODB_URI", c.Store.MongoURI)
	c.Store.MongoDatabase = EnvOrDefault("MONGODB_DATABASE", c.Store.MongoDatabase)

	c.Auth.JWTSecret = EnvOrDefault("JWT_SECRET", c.Auth.JWTSecret)

	c.Log.Level = EnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.File = EnvOrDefault("LOG_FILE", c.Log.File)

	c.SMTP.Host = EnvOrDefault("SMTP_HOST", c.SMTP.Host)
	c.SMTP.User = EnvOrDefault("EMAIL_USER", c.SMTP.User)
	c.SMTP.Password = EnvOrDefault("EMAIL_PASS", c.SMTP.Password)
	c.SMTP.From = EnvOrDefault("EMAIL_FROM", c.SMTP.From)

	var err error
	if c.SMTP.Port, err = envInt("SMTP_PORT", c.SMTP.Port); err != nil {
		return err
	}
	if c.HTTP.RateLimitBurst, err = envInt("RATE_LIMIT_BURST", c.HTTP.RateLimitBurst); err != nil {
		return err
	}
	if raw := os.Getenv("RATE_LIMIT_RPS"); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.HTTP.RateLimitRPS = rps
	}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		c.HTTP.CORSOrigins = splitList(raw)
	}
	return nil
}

// Validate reports settings that would keep the service from starting.
func (c *Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.HTTP.RateLimitRPS < 0 || c.HTTP.RateLimitBurst < 0 {
		return errors.New("rate limit settings must not be negative")
	}
	return nil
}

// ValidateStore checks only the storage settings, for commands that never
// serve HTTP.
func (c *Config) ValidateStore() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("sqlite store requires a database path")
		}
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return errors.New("mongo store requires MONGODB_URI")
		}
		if c.Store.MongoDatabase == "" {
			return errors.New("mongo store requires a database name")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// MailEnabled reports whether outgoing mail should go through SMTP.
func (c *Config) MailEnabled() bool {
	return c.SMTP.Host != ""
}

// EnvOrDefault returns the environment variable value or fallback when it is empty.
func EnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
