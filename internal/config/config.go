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

// Config holds the PropMatch API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Search   SearchConfig   `yaml:"search"`
	Explain  ExplainConfig  `yaml:"explain"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RedisConfig holds the cache/vector-index connection settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PostgresConfig holds the listing store connection settings.
type PostgresConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_min"`
}

// BudgetConfig holds token budget settings for OpenAI usage.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// OpenAIConfig holds embedding and chat model settings.
type OpenAIConfig struct {
	APIKey              string       `yaml:"api_key"`
	BaseURL             string       `yaml:"base_url"`
	EmbeddingModel      string       `yaml:"embedding_model"`
	EmbeddingDimensions int          `yaml:"embedding_dimensions"`
	ChatModel           string       `yaml:"chat_model"`
	Budget              BudgetConfig `yaml:"budget"`
}

// WeightsConfig holds the hybrid combiner weights and bonus magnitudes.
// Zero values fall back to the tuned defaults in the domain layer.
type WeightsConfig struct {
	VectorWeight       float64 `yaml:"vector_weight"`
	LexicalWeight      float64 `yaml:"lexical_weight"`
	BedroomBonus       float64 `yaml:"bedroom_bonus"`
	TypeBonus          float64 `yaml:"type_bonus"`
	PriceBonusScale    float64 `yaml:"price_bonus_scale"`
	LocationBonus      float64 `yaml:"location_bonus"`
	FeatureBonusPerTag float64 `yaml:"feature_bonus_per_tag"`
	PriceTolerance     float64 `yaml:"price_tolerance"`
	AIWeight           float64 `yaml:"ai_weight"`
}

// SearchConfig holds the ranking pipeline settings.
type SearchConfig struct {
	IndexName       string        `yaml:"index_name"`
	VectorKeyPrefix string        `yaml:"vector_key_prefix"`
	DefaultPageSize int           `yaml:"default_page_size"`
	MaxPageSize     int           `yaml:"max_page_size"`
	Weights         WeightsConfig `yaml:"weights"`
}

// ExplainConfig holds the LLM re-ranker/explainer settings.
type ExplainConfig struct {
	BatchSize    int    `yaml:"batch_size"`
	TimeoutSec   int    `yaml:"timeout_sec"`
	CacheBackend string `yaml:"cache_backend"` // redis, memory (default: redis)
	CacheTTLMin  int    `yaml:"cache_ttl_min"`
	WarmCache    bool   `yaml:"warm_cache"`
	WarmPoolSize int    `yaml:"warm_pool_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Streaming explanations hold the connection open well past a
		// normal response write.
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Postgres.MaxOpenConns <= 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Postgres.MaxIdleConns <= 0 {
		c.Postgres.MaxIdleConns = 5
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		c.Postgres.ConnMaxLifetime = 5
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if c.OpenAI.EmbeddingDimensions <= 0 {
		c.OpenAI.EmbeddingDimensions = 1536
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if c.Search.IndexName == "" {
		c.Search.IndexName = "idx:listings"
	}
	if c.Search.VectorKeyPrefix == "" {
		c.Search.VectorKeyPrefix = "listing:"
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 12
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 50
	}
	if c.Explain.BatchSize <= 0 || c.Explain.BatchSize > 12 {
		c.Explain.BatchSize = 12
	}
	if c.Explain.TimeoutSec <= 0 {
		c.Explain.TimeoutSec = 25
	}
	if c.Explain.CacheBackend == "" {
		c.Explain.CacheBackend = "redis"
	}
	if c.Explain.CacheTTLMin <= 0 {
		c.Explain.CacheTTLMin = 10
	}
	if c.Explain.WarmPoolSize <= 0 {
		c.Explain.WarmPoolSize = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	switch c.Explain.CacheBackend {
	case "redis", "memory":
		// ok
	default:
		return fmt.Errorf("explain.cache_backend must be \"redis\" or \"memory\", got %q",
			c.Explain.CacheBackend)
	}
	switch c.OpenAI.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("openai.budget.action must be \"warn\" or \"reject\", got %q",
			c.OpenAI.Budget.Action)
	}
	if c.Search.MaxPageSize < c.Search.DefaultPageSize {
		return fmt.Errorf("search.max_page_size (%d) must be >= search.default_page_size (%d)",
			c.Search.MaxPageSize, c.Search.DefaultPageSize)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check PROPMATCH_CONFIG_DIR
	if dir := os.Getenv("PROPMATCH_CONFIG_DIR"); dir != "" {
		if path := filepath.Join(dir, filename); fileExists(path) {
			return path
		}
	}

	// 2. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 3. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 4. Fallback to ./config/
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
