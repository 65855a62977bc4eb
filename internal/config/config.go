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

// Config holds the docent API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Docs      DocsConfig      `yaml:"docs"`
	Index     IndexConfig     `yaml:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Gate      GateConfig      `yaml:"gate"`
	Embedding BackendConfig   `yaml:"embedding"`
	Generator GeneratorConfig `yaml:"generator"`
	Tools     ToolsConfig     `yaml:"tools"`
	Logging   LoggingConfig   `yaml:"logging"`
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

// DocsConfig holds document corpus settings.
type DocsConfig struct {
	Dir          string `yaml:"dir"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// IndexConfig holds index backend settings.
type IndexConfig struct {
	Driver     string      `yaml:"driver"` // file, redis, lexical (default: file)
	Collection string      `yaml:"collection"`
	DataDir    string      `yaml:"data_dir"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig holds connection settings for the redis index driver.
type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
}

// RetrievalConfig holds retrieval and consolidation settings.
type RetrievalConfig struct {
	TopK               int     `yaml:"top_k"`
	ContextBudget      int     `yaml:"context_budget_chars"`
	TitleWeight        float64 `yaml:"title_weight"`
	MinTitleSimilarity float64 `yaml:"min_title_similarity"`
	MinKeywordOverlap  int     `yaml:"min_keyword_overlap"`
}

// GateConfig holds the relevance-gate thresholds. Corpus-dependent knobs,
// not constants: defaults match the tuned values but stay overridable.
type GateConfig struct {
	MinTokenLen    int `yaml:"min_token_len"`
	FuzzyMinLen    int `yaml:"fuzzy_min_len"`
	FuzzyPrefixLen int `yaml:"fuzzy_prefix_len"`
	StrongMinLen   int `yaml:"strong_min_len"`
	MaxAnswerChars int `yaml:"max_answer_chars"`
}

// BackendConfig holds an OpenAI-compatible backend endpoint.
type BackendConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// GeneratorConfig holds the generative backend settings.
type GeneratorConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	Mode        string  `yaml:"mode"`         // generative, extractive (default: generative)
	HistoryTail int     `yaml:"history_tail"` // prior turns forwarded for coreference
}

// ToolsConfig holds settings for the non-RAG tools.
type ToolsConfig struct {
	TodoPath       string     `yaml:"todo_path"`
	WeatherTimeout int        `yaml:"weather_timeout_sec"`
	UserAgent      string     `yaml:"user_agent"`
	SearchResults  int        `yaml:"search_max_results"`
	SMTP           SMTPConfig `yaml:"smtp"`
}

// SMTPConfig holds outgoing mail settings (usually filled from env).
type SMTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	From string `yaml:"from"`
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
		// Generation against a local model can take a while.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Docs.Dir == "" {
		c.Docs.Dir = "docs_data"
	}
	if c.Docs.ChunkSize <= 0 {
		c.Docs.ChunkSize = 900
	}
	if c.Docs.ChunkOverlap < 0 || c.Docs.ChunkOverlap >= c.Docs.ChunkSize {
		c.Docs.ChunkOverlap = 150
	}
	if c.Index.Driver == "" {
		c.Index.Driver = "file"
	}
	if c.Index.Collection == "" {
		c.Index.Collection = "docs"
	}
	if c.Index.DataDir == "" {
		c.Index.DataDir = "index_store"
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 4
	}
	if c.Retrieval.ContextBudget <= 0 {
		c.Retrieval.ContextBudget = 2200
	}
	if c.Retrieval.TitleWeight <= 0 {
		c.Retrieval.TitleWeight = 0.3
	}
	if c.Retrieval.MinTitleSimilarity <= 0 {
		c.Retrieval.MinTitleSimilarity = 0.5
	}
	if c.Retrieval.MinKeywordOverlap <= 0 {
		c.Retrieval.MinKeywordOverlap = 2
	}
	if c.Gate.MinTokenLen <= 0 {
		c.Gate.MinTokenLen = 3
	}
	if c.Gate.FuzzyMinLen <= 0 {
		c.Gate.FuzzyMinLen = 4
	}
	if c.Gate.FuzzyPrefixLen <= 0 {
		c.Gate.FuzzyPrefixLen = 4
	}
	if c.Gate.StrongMinLen <= 0 {
		c.Gate.StrongMinLen = 5
	}
	if c.Gate.MaxAnswerChars <= 0 {
		c.Gate.MaxAnswerChars = 600
	}
	if c.Generator.Mode == "" {
		c.Generator.Mode = "generative"
	}
	if c.Generator.HistoryTail <= 0 {
		c.Generator.HistoryTail = 6
	}
	if c.Tools.TodoPath == "" {
		c.Tools.TodoPath = "todo_store.json"
	}
	if c.Tools.WeatherTimeout <= 0 {
		c.Tools.WeatherTimeout = 15
	}
	if c.Tools.UserAgent == "" {
		c.Tools.UserAgent = "docent/1.0 (education use)"
	}
	if c.Tools.SearchResults <= 0 {
		c.Tools.SearchResults = 5
	}
	if c.Tools.SMTP.Port <= 0 {
		c.Tools.SMTP.Port = 587
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Index.Driver {
	case "file", "redis", "lexical":
	default:
		return fmt.Errorf("index.driver must be \"file\", \"redis\" or \"lexical\", got %q", c.Index.Driver)
	}
	if c.Index.Driver == "redis" && len(c.Index.Redis.Addrs) == 0 {
		return fmt.Errorf("index.redis.addrs is required for the redis driver")
	}
	switch c.Generator.Mode {
	case "generative", "extractive":
	default:
		return fmt.Errorf("generator.mode must be \"generative\" or \"extractive\", got %q", c.Generator.Mode)
	}
	if c.Generator.Mode == "generative" && c.Generator.Model == "" {
		return fmt.Errorf("generator.model is required in generative mode")
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
