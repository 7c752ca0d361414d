package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultAllowedOrigin is the only browser origin served when cors.allowed_origins is empty.
const DefaultAllowedOrigin = "https://ohmygaugh-crypto.fly.dev"

// Config holds the factgpt API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	CORS     CORSConfig     `yaml:"cors"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Chat     ChatConfig     `yaml:"chat"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"` // covers the whole /chat stream
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials *bool    `yaml:"allow_credentials"`
}

// PipelineConfig holds the knowledge pipeline artifact settings.
type PipelineConfig struct {
	ArtifactPath string `yaml:"artifact_path"`
	KYens        int    `yaml:"k_yens"`
	KWalk        int    `yaml:"k_walk"`
}

// ChatConfig holds the chat-completion provider settings used by /chat.
type ChatConfig struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Model             string        `yaml:"model"`
	Temperature       *float32      `yaml:"temperature"` // nil = 0.3, 0 is honored
	TopP              float32       `yaml:"top_p"`
	MaxTokens         int           `yaml:"max_tokens"`
	ContextChars      int           `yaml:"context_chars"`
	SummaryChars      int           `yaml:"summary_chars"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int           `yaml:"burst"`
	HealthCheck       bool          `yaml:"health_check"`
	Breaker           BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the chat provider.
type BreakerConfig struct {
	MaxRequests      uint32  `yaml:"max_requests"`
	IntervalSec      int     `yaml:"interval_sec"`
	TimeoutSec       int     `yaml:"timeout_sec"`
	MinRequests      uint32  `yaml:"min_requests"`
	FailureThreshold float64 `yaml:"failure_threshold"`
}

// CacheConfig holds the optional search/plot result cache settings.
// The cache is disabled when Addrs is empty.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"` // ACL user, empty = default
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLSec           int      `yaml:"ttl_sec"`
	LocalTTLSec      int      `yaml:"local_ttl_sec"` // client-side caching, 0 = off
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache backend is configured.
func (c CacheConfig) Enabled() bool {
	return len(c.Addrs) > 0
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references and applying defaults.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{DefaultAllowedOrigin}
	}
	if c.CORS.AllowCredentials == nil {
		allow := true
		c.CORS.AllowCredentials = &allow
	}

	if c.Pipeline.ArtifactPath == "" {
		c.Pipeline.ArtifactPath = filepath.Join("database", "pipeline.json")
	}
	if c.Pipeline.KYens <= 0 {
		c.Pipeline.KYens = 1
	}
	if c.Pipeline.KWalk <= 0 {
		c.Pipeline.KWalk = 3
	}

	c.Chat.applyDefaults()

	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

func (c *ChatConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "gpt-3.5-turbo"
	}
	if c.Temperature == nil {
		t := float32(0.3)
		c.Temperature = &t
	}
	if c.TopP == 0 {
		c.TopP = 1
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 300
	}
	if c.ContextChars <= 0 {
		c.ContextChars = 3000
	}
	if c.SummaryChars <= 0 {
		c.SummaryChars = 30
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.Breaker.MaxRequests == 0 {
		c.Breaker.MaxRequests = 5
	}
	if c.Breaker.IntervalSec <= 0 {
		c.Breaker.IntervalSec = 30
	}
	if c.Breaker.TimeoutSec <= 0 {
		c.Breaker.TimeoutSec = 60
	}
	if c.Breaker.MinRequests == 0 {
		c.Breaker.MinRequests = 5
	}
	if c.Breaker.FailureThreshold <= 0 {
		c.Breaker.FailureThreshold = 0.8
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	for _, o := range c.CORS.AllowedOrigins {
		if o == "*" && c.CORS.AllowCredentials != nil && *c.CORS.AllowCredentials {
			return fmt.Errorf("cors.allowed_origins cannot contain \"*\" when credentials are allowed")
		}
	}
	if t := c.Chat.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("chat.temperature must be between 0 and 2, got %g", *t)
	}
	if c.Chat.TopP < 0 || c.Chat.TopP > 1 {
		return fmt.Errorf("chat.top_p must be between 0 and 1, got %g", c.Chat.TopP)
	}
	if c.Chat.RequestsPerSecond < 0 {
		return fmt.Errorf("chat.requests_per_second must not be negative, got %g", c.Chat.RequestsPerSecond)
	}
	if c.Chat.Breaker.FailureThreshold > 1 {
		return fmt.Errorf("chat.breaker.failure_threshold must be at most 1, got %g", c.Chat.Breaker.FailureThreshold)
	}
	if c.Cache.LocalTTLSec < 0 || c.Cache.LocalTTLSec > c.Cache.TTLSec {
		return fmt.Errorf("cache.local_ttl_sec must be between 0 and cache.ttl_sec (%d), got %d", c.Cache.TTLSec, c.Cache.LocalTTLSec)
	}
	if c.Cache.DB < 0 {
		return fmt.Errorf("cache.db must not be negative, got %d", c.Cache.DB)
	}
	for i, addr := range c.Cache.Addrs {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("cache.addrs[%d] must not be empty", i)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
