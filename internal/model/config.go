package model

import "time"

// Config is the complete service configuration. It is built once at startup
// and passed to every component constructor.
type Config struct {
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Search       SearchConfig      `yaml:"search" mapstructure:"search"`
	Scoring      ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Verdict      VerdictConfig     `yaml:"verdict" mapstructure:"verdict"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	History      HistoryConfig     `yaml:"history" mapstructure:"history"`
	Logging      LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Telemetry    TelemetryConfig   `yaml:"telemetry" mapstructure:"telemetry"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	Mode            string        `yaml:"mode" mapstructure:"mode"` // gin mode: debug, release, test
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// HTTPConfig controls outbound page fetches.
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// SearchConfig selects and configures the evidence search provider.
type SearchConfig struct {
	Provider       string        `yaml:"provider" mapstructure:"provider"` // google, googlenews, "" (synthetic only)
	APIKey         string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	EngineID       string        `yaml:"engine_id,omitempty" mapstructure:"engine_id"`
	Endpoint       string        `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	Language       string        `yaml:"language" mapstructure:"language"`
	Region         string        `yaml:"region" mapstructure:"region"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	SimulatedDelay time.Duration `yaml:"simulated_delay" mapstructure:"simulated_delay"`
}

// ScoringConfig extends the built-in credibility table.
type ScoringConfig struct {
	Domains map[string]float64 `yaml:"domains,omitempty" mapstructure:"domains"`
}

// LLMConfig selects the external verdict model.
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, gemini, "" (disabled)
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds, per HTTP request
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
}

// VerdictConfig holds the rule-based thresholds and phrase lists.
// The defaults are heuristics, not validated domain constants.
type VerdictConfig struct {
	ModelTimeout        time.Duration `yaml:"model_timeout" mapstructure:"model_timeout"`
	TrueThreshold       float64       `yaml:"true_threshold" mapstructure:"true_threshold"`
	PartialThreshold    float64       `yaml:"partial_threshold" mapstructure:"partial_threshold"`
	MisleadingThreshold float64       `yaml:"misleading_threshold" mapstructure:"misleading_threshold"`
	FalseThreshold      float64       `yaml:"false_threshold" mapstructure:"false_threshold"`
	MinScore            float64       `yaml:"min_score" mapstructure:"min_score"`
	MaxScore            float64       `yaml:"max_score" mapstructure:"max_score"`
	SuspiciousPenalty   float64       `yaml:"suspicious_penalty" mapstructure:"suspicious_penalty"`
	CredibleBoost       float64       `yaml:"credible_boost" mapstructure:"credible_boost"`
	Perturbation        float64       `yaml:"perturbation" mapstructure:"perturbation"`
	SuspiciousPhrases   []string      `yaml:"suspicious_phrases" mapstructure:"suspicious_phrases"`
	CredibleIndicators  []string      `yaml:"credible_indicators" mapstructure:"credible_indicators"`
}

// CacheConfig controls search result caching.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir     string        `yaml:"dir,omitempty" mapstructure:"dir"` // empty: memory only
}

// RateLimitConfig bounds outbound requests per domain.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig controls CLI batch fan-out.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// HistoryConfig bounds the in-memory analysis history.
type HistoryConfig struct {
	Retention  time.Duration `yaml:"retention" mapstructure:"retention"`
	MaxRecords int           `yaml:"max_records" mapstructure:"max_records"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json, text
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Service  string `yaml:"service" mapstructure:"service"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			Mode:            "release",
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:3001"},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:       10 * time.Second,
			UserAgent:     "Veritas/1.0 (Misinformation Detection Bot)",
			MaxBodyBytes:  5 << 20,
			RespectRobots: true,
		},
		Search: SearchConfig{
			Provider:       "google",
			Language:       "en",
			Region:         "US",
			Timeout:        10 * time.Second,
			SimulatedDelay: 500 * time.Millisecond,
		},
		LLM: LLMConfig{
			Timeout:     30,
			MaxTokens:   1000,
			Temperature: 0.3,
		},
		Verdict: VerdictConfig{
			ModelTimeout:        25 * time.Second,
			TrueThreshold:       0.8,
			PartialThreshold:    0.6,
			MisleadingThreshold: 0.4,
			FalseThreshold:      0.2,
			MinScore:            0.1,
			MaxScore:            0.95,
			SuspiciousPenalty:   0.7,
			CredibleBoost:       1.2,
			Perturbation:        0.1,
			SuspiciousPhrases: []string{
				"fake news", "hoax", "conspiracy", "secret", "cover-up", "they dont want you to know",
			},
			CredibleIndicators: []string{
				"research shows", "study", "according to", "expert", "scientific",
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     time.Hour,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2.0,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 1,
		},
		History: HistoryConfig{
			Retention:  90 * 24 * time.Hour,
			MaxRecords: 10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Endpoint: "localhost:4318",
			Service:  "veritas",
		},
	}
}
