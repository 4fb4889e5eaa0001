// Package config loads service configuration from a .env file, an optional
// TOML file and environment variables, in that order of precedence (lowest
// first).
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

// Storage backends.
const (
	StorageMemory   = "in-memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMongo    = "mongo"
)

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Auth    AuthConfig    `toml:"auth"`
	LLM     LLMConfig     `toml:"llm"`
	Google  GoogleConfig  `toml:"google"`
}

// ServerConfig controls the HTTP listener and request limits.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	LogLevel    string   `toml:"log_level"`

	// ChatRatePerMinute is how many chat sends a single user may make per minute.
	ChatRatePerMinute int `toml:"chat_rate_per_minute"`
	ChatBurst         int `toml:"chat_burst"`

	FeedPageSize int `toml:"feed_page_size"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Type          string `toml:"type"`
	DatabaseURL   string `toml:"database_url"`
	SQLitePath    string `toml:"sqlite_path"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`

	// MigrationsDir is the root directory holding one goose folder per dialect.
	MigrationsDir string `toml:"migrations_dir"`
}

// AuthConfig configures session tokens.
type AuthConfig struct {
	JWTSecret     string `toml:"jwt_secret"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
}

// TokenTTL returns the session token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// LLMConfig configures the chat-completion provider.
type LLMConfig struct {
	Provider string `toml:"provider"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Model    string `toml:"model"`

	// ModelLabel is the human readable model name stored on shared posts.
	ModelLabel     string  `toml:"model_label"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Timeout returns the per-request timeout for the provider.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// GoogleConfig enables Google sign-in when ClientID is set.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Default returns a configuration with defaults for every field.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			CORSOrigins:       []string{"http://localhost:3000"},
			LogLevel:          "info",
			ChatRatePerMinute: 20,
			ChatBurst:         5,
			FeedPageSize:      20,
		},
		Storage: StorageConfig{
			Type:          StorageMemory,
			SQLitePath:    "synapse.db",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "synapse",
			MigrationsDir: "migrations",
		},
		Auth: AuthConfig{
			TokenTTLHours: 72,
		},
		LLM: LLMConfig{
			Provider:       ProviderOpenAI,
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-3.5-turbo",
			ModelLabel:     "GPT-3.5",
			Temperature:    0.7,
			TimeoutSeconds: 60,
		},
	}
}

// Load reads .env (if present), then the TOML file at path (if path is not
// empty), then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() error {
	setString(&c.Storage.Type, "STORAGE_TYPE")
	setString(&c.Storage.DatabaseURL, "DATABASE_URL")
	setString(&c.Storage.SQLitePath, "SQLITE_PATH")
	setString(&c.Storage.MongoURI, "MONGO_URI")
	setString(&c.Storage.MongoDatabase, "MONGO_DATABASE")
	setString(&c.Storage.MigrationsDir, "MIGRATIONS_DIR")

	setString(&c.Auth.JWTSecret, "JWT_SECRET")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.BaseURL, "LLM_BASE_URL")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.ModelLabel, "LLM_MODEL_LABEL")

	setString(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.Google.RedirectURL, "GOOGLE_REDIRECT_URL")

	setString(&c.Server.LogLevel, "LOG_LEVEL")
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = splitList(origins)
	}

	// Provider-specific key names are accepted as a fallback.
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case ProviderOpenAI:
			setString(&c.LLM.APIKey, "OPENAI_API_KEY")
		case ProviderGemini:
			setString(&c.LLM.APIKey, "GEMINI_API_KEY")
		}
	}

	ints := []struct {
		dst *int
		key string
	}{
		{&c.Server.Port, "PORT"},
		{&c.Server.ChatRatePerMinute, "CHAT_RATE_PER_MINUTE"},
		{&c.Server.ChatBurst, "CHAT_BURST"},
		{&c.Server.FeedPageSize, "FEED_PAGE_SIZE"},
		{&c.Auth.TokenTTLHours, "JWT_TTL_HOURS"},
		{&c.LLM.TimeoutSeconds, "LLM_TIMEOUT_SECONDS"},
	}
	for _, v := range ints {
		if err := setInt(v.dst, v.key); err != nil {
			return err
		}
	}

	if t := os.Getenv("LLM_TEMPERATURE"); t != "" {
		temp, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
		}
		c.LLM.Temperature = temp
	}
	return nil
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks enum fields and the secrets required by the chosen backends.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port", fmt.Sprintf("invalid port %d", c.Server.Port))
	}
	if c.Server.ChatRatePerMinute <= 0 {
		add("server.chat_rate_per_minute", "must be positive")
	}
	if c.Server.ChatBurst <= 0 {
		add("server.chat_burst", "must be positive")
	}
	if c.Server.FeedPageSize <= 0 {
		add("server.feed_page_size", "must be positive")
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			add("storage.database_url", "required for postgres storage")
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			add("storage.sqlite_path", "required for sqlite storage")
		}
	case StorageMongo:
		if c.Storage.MongoURI == "" || c.Storage.MongoDatabase == "" {
			add("storage.mongo_uri", "uri and database required for mongo storage")
		}
	default:
		add("storage.type", fmt.Sprintf("unknown storage type %q, must be one of: %s, %s, %s, %s",
			c.Storage.Type, StorageMemory, StoragePostgres, StorageSQLite, StorageMongo))
	}

	if c.Auth.JWTSecret == "" {
		add("auth.jwt_secret", "required")
	}
	if c.Auth.TokenTTLHours <= 0 {
		add("auth.token_ttl_hours", "must be positive")
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.BaseURL == "" {
			add("llm.base_url", "required for openai provider")
		}
	case ProviderGemini:
	default:
		add("llm.provider", fmt.Sprintf("unknown provider %q, must be one of: %s, %s",
			c.LLM.Provider, ProviderOpenAI, ProviderGemini))
	}
	if c.LLM.Model == "" {
		add("llm.model", "required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature", "must be between 0 and 2")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		add("llm.timeout_seconds", "must be positive")
	}

	if c.Google.ClientID != "" && c.Google.RedirectURL == "" {
		add("google.redirect_url", "required when google sign-in is enabled")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
