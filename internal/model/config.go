package model

// Config holds all ledger configuration
type Config struct {
	Fixtures     FixturesConfig     `yaml:"fixtures" mapstructure:"fixtures"`
	Ledger       LedgerConfig       `yaml:"ledger" mapstructure:"ledger"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// FixturesConfig points at the JSON catalog fixtures
type FixturesConfig struct {
	Dir   string `yaml:"dir" mapstructure:"dir"`
	Watch bool   `yaml:"watch" mapstructure:"watch"` // Reload on file change
}

// LedgerConfig selects the run registry backend
type LedgerConfig struct {
	Backend      string `yaml:"backend" mapstructure:"backend"` // memory, sqlite, postgres
	SQLitePath   string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	PostgresDSN  string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	BusyTimeout  int    `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
	MaxOpenConns int    `yaml:"max_open_conns" mapstructure:"max_open_conns"`
}

// CacheConfig controls fixture and explanation caching
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	TTL     int    `yaml:"ttl_seconds" mapstructure:"ttl_seconds"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
}

// ConcurrencyConfig sizes the QA study worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig bounds API requests per client
type RateLimitingConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr        string   `yaml:"addr" mapstructure:"addr"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	Debug       bool     `yaml:"debug" mapstructure:"debug"`
}

// LLMConfig configures optional narrative explanations
type LLMConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"` // openai or empty
	Model         string `yaml:"model" mapstructure:"model"`
	APIKey        string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL       string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	HTTPProxy     string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	Timeout       int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	StrictFigures bool   `yaml:"strict_figures" mapstructure:"strict_figures"`
	MaxTokens     int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// OutputConfig controls CLI rendering
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // text, json, md
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Fixtures: FixturesConfig{
			Dir:   "data/fixtures",
			Watch: false,
		},
		Ledger: LedgerConfig{
			Backend:      "sqlite",
			SQLitePath:   "ledger.db",
			BusyTimeout:  5000,
			MaxOpenConns: 1,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     300,
			Dir:     ".ledger-cache",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Server: ServerConfig{
			Addr:        ":8000",
			CORSOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		},
		LLM: LLMConfig{
			Provider:      "",
			Timeout:       30,
			StrictFigures: true,
			MaxTokens:     600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}
