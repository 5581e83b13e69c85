package common

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/docstruct/constants"
)

// Config holds all application configuration
type Config struct {
	LLM    LLMConfig    `yaml:"llm"`
	Reader ReaderConfig `yaml:"reader"`
	Export ExportConfig `yaml:"export"`
	Log    LogConfig    `yaml:"log"`
}

// LLMConfig holds backend selection. Sampling temperature is not configurable;
// the invokers always send 0.
type LLMConfig struct {
	Backend string        `yaml:"backend"`  // openai | gemini
	Model   string        `yaml:"model"`    // empty = backend default
	BaseURL string        `yaml:"base_url"` // openai-compatible endpoints only
	APIKey  string        `yaml:"-"`        // env only
	Timeout time.Duration `yaml:"timeout"`
}

// ReaderConfig holds document reader configuration
type ReaderConfig struct {
	CacheSize int `yaml:"cache_size"`
	MaxPages  int `yaml:"max_pages"`
}

// ExportConfig holds spreadsheet output configuration
type ExportConfig struct {
	Sheet string `yaml:"sheet"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

func defaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Backend: constants.BackendOpenAI,
			Timeout: 60 * time.Second,
		},
		Reader: ReaderConfig{CacheSize: 16},
		Export: ExportConfig{Sheet: constants.DefaultSheet},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// LoadConfig builds configuration from defaults, then the optional YAML file
// at path, then environment variables. Later sources win. Unknown keys in the
// file are an error.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, NewAppError(CodeConfig, "parse config file", err)
		}
	}

	cfg.LLM.Backend = strings.ToLower(getEnv("LLM_BACKEND", cfg.LLM.Backend))
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", cfg.LLM.Timeout)
	cfg.LLM.APIKey = APIKeyFor(cfg.LLM.Backend)

	cfg.Reader.CacheSize = getEnvAsInt("READER_CACHE_SIZE", cfg.Reader.CacheSize)
	cfg.Reader.MaxPages = getEnvAsInt("READER_MAX_PAGES", cfg.Reader.MaxPages)
	cfg.Export.Sheet = getEnv("OUTPUT_SHEET", cfg.Export.Sheet)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	return cfg, nil
}

// APIKeyFor picks the credential for backend from the environment.
// LLM_API_KEY overrides the backend-specific variables.
func APIKeyFor(backend string) string {
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		return v
	}
	switch backend {
	case constants.BackendGemini:
		return os.Getenv("GEMINI_API_KEY")
	default:
		return getEnv("GROQ_API_KEY", os.Getenv("OPENAI_API_KEY"))
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("llm.backend", c.LLM.Backend, OneOf(constants.BackendOpenAI, constants.BackendGemini)).
		Field("llm.api_key", c.LLM.APIKey, Required).
		Field("llm.timeout", c.LLM.Timeout, Positive).
		Field("reader.cache_size", c.Reader.CacheSize, NonNegative).
		Field("reader.max_pages", c.Reader.MaxPages, NonNegative).
		Field("export.sheet", c.Export.Sheet, Required)
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// String renders the config without secrets, for startup logs.
func (c *Config) String() string {
	key := "unset"
	if c.LLM.APIKey != "" {
		key = "set"
	}
	return fmt.Sprintf("backend=%s model=%q base_url=%q timeout=%s api_key=%s",
		c.LLM.Backend, c.LLM.Model, c.LLM.BaseURL, c.LLM.Timeout, key)
}
