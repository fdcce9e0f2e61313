// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Version is the server version, overridden at build time with
// -ldflags "-X github.com/storyloom/storyloom-server/internal/config.Version=...".
var Version = "dev"

// Storage backends.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// AI providers.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
	// ProviderNone disables the chat proxy; it answers 500 "AI unavailable".
	ProviderNone = "none"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Storage  StorageConfig
	AI       AIConfig
	Drawings DrawingsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name          string
	Port          string        // Server port (default: 5000)
	PublicBaseURL string        // Base URL clients use to reach the API
	CORSOrigins   []string      // Allowed browser origins (default: *)
	ReadTimeout   time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout  time.Duration // HTTP write timeout (default: 90s, chat replies are slow)
	IdleTimeout   time.Duration // HTTP idle timeout (default: 60s)
}

// StorageConfig selects and configures the record store.
type StorageConfig struct {
	Backend     string // memory, badger, sqlite or redis (default: badger)
	DataPath    string // Directory for badger and sqlite files
	RedisURL    string
	RedisPrefix string
	SyncPolicy  string // auto, collection or record (default: auto)
}

// AIConfig holds chat provider configuration.
type AIConfig struct {
	Provider  string // openai, mock or none (default: openai)
	APIKey    string
	Model     string
	BaseURL   string // Optional, for compatible gateways
	Timeout   time.Duration
	RateLimit float64 // Chat requests per second per client
	RateBurst int
}

// DrawingsConfig holds drawing board configuration.
type DrawingsConfig struct {
	// CascadeDelete clears a slide's drawings when the slide is deleted (default: true)
	CascadeDelete bool
	// HistoryLimit is the number of undo steps kept per drawing (default: 50)
	HistoryLimit int
	// HistoryTTL drops undo histories idle for this long (default: 30m)
	HistoryTTL time.Duration
	// HistoryMaxEntries caps the live undo histories across all sessions (default: 1000)
	HistoryMaxEntries int
}

// LoadConfig loads configuration from the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("storyloom", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 5000)")
	publicURL := fs.String("public-url", "", "Base URL clients use (default: http://localhost:5000)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed origins (default: *)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 90s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	// Storage flags
	backend := fs.String("storage", "", "Storage backend: memory, badger, sqlite, redis (default: badger)")
	dataPath := fs.String("data-path", "", "Directory for local storage files")
	redisURL := fs.String("redis-url", "", "Redis URL (default: redis://localhost:6379/0)")
	syncPolicy := fs.String("sync-policy", "", "Write policy: auto, collection, record (default: auto)")

	// AI flags
	provider := fs.String("ai-provider", "", "Chat provider: openai, mock, none (default: openai)")
	model := fs.String("model", "", "Chat model (default: gpt-4o-mini)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Name:          getConfigValue("", "SERVER_NAME", "Storyloom Server"),
			Port:          getConfigValue(*serverPort, "PORT", "5000"),
			PublicBaseURL: getConfigValue(*publicURL, "VITE_API_BASE_URL", "http://localhost:5000"),
			CORSOrigins:   splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(getConfigValue(*backend, "STORAGE_BACKEND", BackendBadger)),
			DataPath:    getConfigValue(*dataPath, "DATA_PATH", ""),
			RedisURL:    getConfigValue(*redisURL, "REDIS_URL", "redis://localhost:6379/0"),
			RedisPrefix: getConfigValue("", "REDIS_PREFIX", "storyloom:"),
			SyncPolicy:  strings.ToLower(getConfigValue(*syncPolicy, "SYNC_POLICY", "auto")),
		},
		AI: AIConfig{
			Provider:  strings.ToLower(getConfigValue(*provider, "AI_PROVIDER", ProviderOpenAI)),
			APIKey:    getConfigValue("", "OPENAI_API_KEY", ""),
			Model:     getConfigValue(*model, "OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:   getConfigValue("", "OPENAI_BASE_URL", ""),
			RateLimit: getFloatConfigValue("", "CHAT_RATE_LIMIT", 1),
			RateBurst: getIntConfigValue("", "CHAT_RATE_BURST", 5),
		},
		Drawings: DrawingsConfig{
			CascadeDelete:     getBoolConfigValue("", "DRAWINGS_CASCADE_DELETE", true),
			HistoryLimit:      getIntConfigValue("", "HISTORY_LIMIT", 50),
			HistoryMaxEntries: getIntConfigValue("", "HISTORY_MAX_ENTRIES", 1000),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "90s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.AI.Timeout, "", "AI_TIMEOUT", "60s"},
		{&cfg.Drawings.HistoryTTL, "", "HISTORY_TTL", "30m"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.fallback)
		v, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = v
	}

	// Expand and validate data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendBadger, BackendSQLite:
		if c.Storage.DataPath == "" {
			return errors.New("data path cannot be empty for a persistent backend")
		}
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be memory, badger, sqlite, or redis)", c.Storage.Backend)
	}

	if !slices.Contains([]string{"", "auto", "collection", "record"}, c.Storage.SyncPolicy) {
		return fmt.Errorf("invalid sync policy: %s (must be auto, collection, or record)", c.Storage.SyncPolicy)
	}

	switch c.AI.Provider {
	case ProviderOpenAI:
		if c.AI.APIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderMock, ProviderNone:
	default:
		return fmt.Errorf("invalid AI provider: %s (must be openai, mock, or none)", c.AI.Provider)
	}

	if c.AI.RateLimit <= 0 || c.AI.RateBurst < 1 {
		return errors.New("chat rate limit and burst must be positive")
	}

	if c.Drawings.HistoryLimit < 1 {
		return fmt.Errorf("invalid history limit: %d", c.Drawings.HistoryLimit)
	}

	if c.Drawings.HistoryMaxEntries < 1 {
		return fmt.Errorf("invalid history max entries: %d", c.Drawings.HistoryMaxEntries)
	}

	return nil
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return ":" + s.Port
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute. Defaults to
// ~/Storyloom/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Storyloom", "data")

	expanded, err := expandPath(c.Storage.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
