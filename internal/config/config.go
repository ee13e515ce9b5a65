// Package config loads the sieve configuration from defaults, a YAML file,
// a .env file and SIEVE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/sieve/pkg/persistence/middleware"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the fully merged configuration.
type Config struct {
	Source  string        `mapstructure:"source"`
	Log     LogConfig     `mapstructure:"log"`
	Diagram DiagramConfig `mapstructure:"diagram"`
	Clean   CleanConfig   `mapstructure:"clean"`
	Summary SummaryConfig `mapstructure:"summary"`
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
}

// LogConfig selects the log level (debug, info, warn, error) and the
// handler format (text or json).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DiagramConfig controls the Mermaid diagram written before each CLI run.
// RendererURL is only used for .png and .svg paths.
type DiagramConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Path        string `mapstructure:"path"`
	RendererURL string `mapstructure:"renderer_url"`
}

// CleanConfig enables the optional IQR outlier filter after cleaning.
type CleanConfig struct {
	Outliers  bool    `mapstructure:"outliers"`
	IQRFactor float64 `mapstructure:"iqr_factor"`
}

// SummaryConfig controls the summary text.
type SummaryConfig struct {
	Detailed bool `mapstructure:"detailed"`
}

// StoreConfig selects where run reports are persisted.
type StoreConfig struct {
	Backend string      `mapstructure:"backend"`
	Dir     string      `mapstructure:"dir"`
	Redis   RedisConfig `mapstructure:"redis"`
	// EncryptionKey is a base64 AES-256 key. When set, reports are sealed
	// before they reach the backend.
	EncryptionKey string `mapstructure:"encryption_key"`
}

// RedisConfig is the connection of the redis store backend. A zero TTL
// keeps reports forever.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ServerConfig configures the HTTP and MCP servers.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// DataDir confines the source paths remote callers may run the
	// pipeline on. Paths are resolved relative to it.
	DataDir string `mapstructure:"data_dir"`
}

// envKeys maps environment variables to dotted configuration keys.
var envKeys = map[string]string{
	"SIEVE_SOURCE":               "source",
	"SIEVE_LOG_LEVEL":            "log.level",
	"SIEVE_LOG_FORMAT":           "log.format",
	"SIEVE_DIAGRAM_ENABLED":      "diagram.enabled",
	"SIEVE_DIAGRAM_PATH":         "diagram.path",
	"SIEVE_DIAGRAM_RENDERER_URL": "diagram.renderer_url",
	"SIEVE_CLEAN_OUTLIERS":       "clean.outliers",
	"SIEVE_CLEAN_IQR_FACTOR":     "clean.iqr_factor",
	"SIEVE_SUMMARY_DETAILED":     "summary.detailed",
	"SIEVE_STORE_BACKEND":        "store.backend",
	"SIEVE_STORE_DIR":            "store.dir",
	"SIEVE_STORE_ENCRYPTION_KEY": "store.encryption_key",
	"SIEVE_REDIS_ADDR":           "store.redis.addr",
	"SIEVE_REDIS_PASSWORD":       "store.redis.password",
	"SIEVE_REDIS_DB":             "store.redis.db",
	"SIEVE_REDIS_PREFIX":         "store.redis.prefix",
	"SIEVE_REDIS_TTL":            "store.redis.ttl",
	"SIEVE_SERVER_ADDR":          "server.addr",
	"SIEVE_SERVER_DATA_DIR":      "server.data_dir",
}

func defaults() map[string]any {
	return map[string]any{
		"source": "data/example.csv",
		"log": map[string]any{
			"level":  "info",
			"format": "text",
		},
		"diagram": map[string]any{
			"enabled":      true,
			"path":         "outputs/missing_values_workflow.mmd",
			"renderer_url": "https://mermaid.ink",
		},
		"clean": map[string]any{
			"outliers":   false,
			"iqr_factor": 1.5,
		},
		"summary": map[string]any{
			"detailed": false,
		},
		"store": map[string]any{
			"backend":        BackendNone,
			"dir":            ".sieve/reports",
			"encryption_key": "",
			"redis": map[string]any{
				"addr":     "localhost:6379",
				"password": "",
				"db":       0,
				"prefix":   "sieve:report:",
				"ttl":      "0s",
			},
		},
		"server": map[string]any{
			"addr":     ":8080",
			"data_dir": "data",
		},
	}
}

// Default returns the configuration used when no file or variable is set.
func Default() *Config {
	cfg, err := decode(defaults())
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load merges the YAML file at path and the .env file at envFile over the
// defaults. Either file may be missing. Process environment variables win
// over the .env file; the .env values are never exported to the process.
func Load(path, envFile string) (*Config, error) {
	merged := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Missing file means defaults.
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			var fromFile map[string]any
			if err := yaml.Unmarshal(data, &fromFile); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			mergeMaps(merged, fromFile)
		}
	}

	env := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read env file: %w", err)
		default:
			env = values
		}
	}
	for name := range envKeys {
		if v, ok := os.LookupEnv(name); ok {
			env[name] = v
		}
	}
	for name, value := range env {
		if key, ok := envKeys[name]; ok {
			setPath(merged, key, value)
		}
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(input map[string]any) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(input); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendNone, BackendMemory, BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Clean.IQRFactor <= 0 {
		return fmt.Errorf("clean.iqr_factor must be positive, got %v", c.Clean.IQRFactor)
	}
	if c.Store.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Store.EncryptionKey); err != nil {
			return fmt.Errorf("store.encryption_key: %w", err)
		}
	}
	if c.Store.Redis.TTL < 0 {
		return fmt.Errorf("store.redis.ttl must not be negative")
	}
	if strings.TrimSpace(c.Server.DataDir) == "" {
		return fmt.Errorf("server.data_dir must not be empty")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// mergeMaps copies src into dst, descending into nested maps.
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				mergeMaps(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

// setPath assigns value at a dotted key, creating intermediate maps.
func setPath(m map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}
