// Package config provides configuration loading for sourcequery. Settings
// come from an optional YAML file with ${VAR} expansion, overlaid by
// environment variables. The pipelines never hardcode limits or timeouts;
// everything is injected from here.
package config

import (
	"fmt"
	"time"
)

// Settings is the full runtime configuration.
type Settings struct {
	// DatabaseURL is the connection string for database queries.
	// The driver is inferred from its scheme.
	DatabaseURL string `yaml:"database_url" env:"SOURCEQUERY_DATABASE_URL"`

	// APIBaseURL is the base URL for API queries.
	APIBaseURL string `yaml:"api_base_url" env:"SOURCEQUERY_API_BASE_URL"`

	Reasoning   Reasoning   `yaml:"reasoning" envPrefix:"SOURCEQUERY_REASONING_"`
	Credentials Credentials `yaml:"credentials" envPrefix:"SOURCEQUERY_CRED_"`
	Limits      Limits      `yaml:"limits" envPrefix:"SOURCEQUERY_LIMIT_"`
	Log         Log         `yaml:"log" envPrefix:"SOURCEQUERY_LOG_"`
}

// Reasoning configures the reasoning engine provider.
type Reasoning struct {
	// Provider selects the adapter: anthropic, openai or ollama.
	Provider string `yaml:"provider" env:"PROVIDER" envDefault:"openai"`
	APIKey   string `yaml:"api_key" env:"API_KEY"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL"`
	Model    string `yaml:"model" env:"MODEL"`
	// Timeout bounds every completion call.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT" envDefault:"120s"`
	// MaxAttempts bounds retries of transient provider failures.
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS" envDefault:"2"`
}

// Credentials references the auth material available for API queries.
// Values are secret references resolved from the environment; they are
// held in memory for the process lifetime only and never logged.
type Credentials struct {
	APIKey       string   `yaml:"api_key" env:"API_KEY"`
	APIKeyHeader string   `yaml:"api_key_header" env:"API_KEY_HEADER"`
	APIKeyQuery  string   `yaml:"api_key_query" env:"API_KEY_QUERY"`
	BearerToken  string   `yaml:"bearer_token" env:"BEARER_TOKEN"`
	Username     string   `yaml:"username" env:"USERNAME"`
	Password     string   `yaml:"password" env:"PASSWORD"`
	ClientID     string   `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string   `yaml:"client_secret" env:"CLIENT_SECRET"`
	TokenURL     string   `yaml:"token_url" env:"TOKEN_URL"`
	Scopes       []string `yaml:"scopes" env:"SCOPES"`
}

// Limits bounds every external interaction of the pipelines.
type Limits struct {
	// MaxTables caps the schema subset handed to the SQL planner.
	MaxTables int `yaml:"max_tables" env:"MAX_TABLES" envDefault:"10"`

	// RowLimit caps rows returned by a query; overflow truncates.
	RowLimit int `yaml:"row_limit" env:"ROW_LIMIT" envDefault:"500"`

	// PlanCycles caps plan/validate cycles after safety rejections.
	PlanCycles int `yaml:"plan_cycles" env:"PLAN_CYCLES" envDefault:"3"`

	// HTTPMaxAttempts caps retries of transient HTTP failures.
	HTTPMaxAttempts int `yaml:"http_max_attempts" env:"HTTP_MAX_ATTEMPTS" envDefault:"3"`

	// HTTPRetryDelay is the initial backoff delay; it doubles per attempt.
	HTTPRetryDelay time.Duration `yaml:"http_retry_delay" env:"HTTP_RETRY_DELAY" envDefault:"250ms"`

	// ConnectTimeout bounds opening a database session.
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT" envDefault:"10s"`

	// QueryTimeout bounds a single statement execution.
	QueryTimeout time.Duration `yaml:"query_timeout" env:"QUERY_TIMEOUT" envDefault:"30s"`

	// HTTPTimeout bounds a single HTTP call.
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"HTTP_TIMEOUT" envDefault:"30s"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level" env:"LEVEL" envDefault:"info"`
	Format string `yaml:"format" env:"FORMAT" envDefault:"console"`
}

// Default returns settings with every limit at its documented default.
func Default() Settings {
	return Settings{
		Reasoning: Reasoning{
			Provider:    "openai",
			Timeout:     120 * time.Second,
			MaxAttempts: 2,
		},
		Limits: Limits{
			MaxTables:       10,
			RowLimit:        500,
			PlanCycles:      3,
			HTTPMaxAttempts: 3,
			HTTPRetryDelay:  250 * time.Millisecond,
			ConnectTimeout:  10 * time.Second,
			QueryTimeout:    30 * time.Second,
			HTTPTimeout:     30 * time.Second,
		},
		Log: Log{Level: "info", Format: "console"},
	}
}

// Validate checks invariants that would otherwise surface deep inside a
// pipeline run.
func (s Settings) Validate() error {
	if s.Limits.MaxTables <= 0 || s.Limits.MaxTables > 10 {
		return fmt.Errorf("limits.max_tables must be in 1..10, got %d", s.Limits.MaxTables)
	}
	if s.Limits.RowLimit <= 0 {
		return fmt.Errorf("limits.row_limit must be positive, got %d", s.Limits.RowLimit)
	}
	if s.Limits.PlanCycles <= 0 {
		return fmt.Errorf("limits.plan_cycles must be positive, got %d", s.Limits.PlanCycles)
	}
	if s.Limits.HTTPMaxAttempts <= 0 {
		return fmt.Errorf("limits.http_max_attempts must be positive, got %d", s.Limits.HTTPMaxAttempts)
	}
	return nil
}
