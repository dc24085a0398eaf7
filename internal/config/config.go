// Package config handles configuration loading for ratiodash.
// It supports YAML config files, a .env file and environment variable
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "RATIODASH"

// Config represents the complete application configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"     yaml:"llm"`
	Data    DataConfig    `mapstructure:"data"    yaml:"data"`
	News    NewsConfig    `mapstructure:"news"    yaml:"news"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Render  RenderConfig  `mapstructure:"render"  yaml:"render"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" yaml:"-" json:"-"`
}

// LLMConfig holds language-model provider configuration.
type LLMConfig struct {
	Enabled     bool    `mapstructure:"enabled"     yaml:"enabled"`
	Primary     string  `mapstructure:"primary"     yaml:"primary"` // "ollama" or "gemini"
	Model       string  `mapstructure:"model"       yaml:"model"`   // empty selects the provider default
	OllamaURL   string  `mapstructure:"ollama_url"  yaml:"ollama_url"`
	GeminiKey   string  `mapstructure:"gemini_key"  yaml:"gemini_key" json:"-"`
	GeminiURL   string  `mapstructure:"gemini_url"  yaml:"gemini_url"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"  yaml:"max_tokens"`
	Timeout     int     `mapstructure:"timeout"     yaml:"timeout"` // seconds
}

// DataConfig holds financial statement source settings.
type DataConfig struct {
	BaseURL   string  `mapstructure:"base_url"   yaml:"base_url"`
	Frequency string  `mapstructure:"frequency"  yaml:"frequency"` // "annual" or "quarterly"
	CacheTTL  int     `mapstructure:"cache_ttl"  yaml:"cache_ttl"` // seconds
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second
	Timeout   int     `mapstructure:"timeout"    yaml:"timeout"`    // seconds
}

// NewsConfig holds headline feed settings.
type NewsConfig struct {
	Enabled bool   `mapstructure:"enabled"  yaml:"enabled"`
	FeedURL string `mapstructure:"feed_url" yaml:"feed_url"`
	Limit   int    `mapstructure:"limit"    yaml:"limit"`
}

// APIConfig holds web dashboard server settings.
type APIConfig struct {
	Host           string   `mapstructure:"host"            yaml:"host"`
	Port           int      `mapstructure:"port"            yaml:"port"`
	CORSOrigins    []string `mapstructure:"cors_origins"    yaml:"cors_origins"`
	RequestTimeout int      `mapstructure:"request_timeout" yaml:"request_timeout"` // seconds
}

// RenderConfig holds terminal rendering settings.
type RenderConfig struct {
	Style    string `mapstructure:"style"     yaml:"style"` // "auto", "dark", "light", "notty"
	WordWrap int    `mapstructure:"word_wrap" yaml:"word_wrap"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// Seconds converts a config value in seconds to a duration.
func Seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// Load reads the configuration from file and environment variables.
// A .env file in the working directory is loaded first; it never overrides
// variables already set in the environment.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.ratiodash/config.yaml (home directory)
//  3. /etc/ratiodash/config.yaml (system)
//
// Environment variables override config file values.
// Format: RATIODASH_<SECTION>_<KEY>, e.g. RATIODASH_DATA_FREQUENCY
func Load() (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".ratiodash"))
	v.AddConfigPath("/etc/ratiodash")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("error loading %s: %w", p, err)
		}
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	switch c.Data.Frequency {
	case "annual", "quarterly":
	default:
		return fmt.Errorf("config: data.frequency must be annual or quarterly, got %q", c.Data.Frequency)
	}
	switch strings.ToLower(c.LLM.Primary) {
	case "ollama", "gemini":
	default:
		return fmt.Errorf("config: llm.primary must be ollama or gemini, got %q", c.LLM.Primary)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: logging.format must be console or json, got %q", c.Logging.Format)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("config: api.port out of range: %d", c.API.Port)
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.primary", "ollama")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.gemini_url", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.timeout", 120)

	// Data defaults
	v.SetDefault("data.base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("data.frequency", "annual")
	v.SetDefault("data.cache_ttl", 3600) // statements change quarterly at most
	v.SetDefault("data.rate_limit", 5)
	v.SetDefault("data.timeout", 30)

	// News defaults
	v.SetDefault("news.enabled", true)
	v.SetDefault("news.feed_url", "")
	v.SetDefault("news.limit", 5)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.request_timeout", 60)

	// Render defaults
	v.SetDefault("render.style", "auto")
	v.SetDefault("render.word_wrap", 100)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// GEMINI_API_KEY is honoured as well since the Gemini tooling uses it.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && cfg.LLM.GeminiKey == "" {
		cfg.LLM.GeminiKey = key
	}
	if key := os.Getenv(EnvPrefix + "_LLM_GEMINI_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
