// Package config defines engine configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Validate reports every problem wrapped in ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Factor volatility classes understood by the registry.
const (
	VolatilityStable   = "STABLE"
	VolatilityVolatile = "VOLATILE"
)

// Extraction providers.
const (
	ProviderStatic = "static"
	ProviderGemini = "gemini"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory research queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of research workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize caps the number of concurrently claimed research tasks.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of shards in the finding store.
	ShardCount int `koanf:"shard_count"`

	// ResearchTimeoutMS bounds a single call to the research oracle.
	ResearchTimeoutMS int `koanf:"research_timeout_ms"`

	// StableTTLDays and VolatileTTLDays are the class TTLs.
	StableTTLDays   int `koanf:"stable_ttl_days"`
	VolatileTTLDays int `koanf:"volatile_ttl_days"`

	// EscalationThreshold is how many gap skills a preferred gap must unlock
	// before it is escalated to critical.
	EscalationThreshold int `koanf:"escalation_threshold"`

	// Verdict thresholds.
	GoMatchThreshold        float64 `koanf:"go_match_threshold"`
	GoDesirabilityThreshold float64 `koanf:"go_desirability_threshold"`
	NoGoRequiredThreshold   float64 `koanf:"no_go_required_threshold"`

	// Factors seeds the factor registry.
	Factors []FactorConfig `koanf:"factors"`

	Extraction ExtractionConfig `koanf:"extraction"`
	Postgres   PostgresConfig   `koanf:"postgres"`
	Redis      RedisConfig      `koanf:"redis"`
}

// FactorConfig describes one desirability factor.
type FactorConfig struct {
	Key          string  `koanf:"key" yaml:"key"`
	Name         string  `koanf:"name" yaml:"name"`
	Volatility   string  `koanf:"volatility" yaml:"volatility"`
	TTLDays      int     `koanf:"ttl_days" yaml:"ttl_days"` // 0 uses the class TTL
	Weight       float64 `koanf:"weight" yaml:"weight"`
	Instructions string  `koanf:"instructions" yaml:"instructions"`
}

// ExtractionConfig selects and tunes the research and requirement oracle.
type ExtractionConfig struct {
	Provider      string  `koanf:"provider"`
	Model         string  `koanf:"model"`
	APIKeyEnv     string  `koanf:"api_key_env"`
	Temperature   float64 `koanf:"temperature"`
	MaxTokens     int     `koanf:"max_tokens"`
	MaxTextLength int     `koanf:"max_text_length"`
}

// PostgresConfig enables durable storage when DSN is set.
type PostgresConfig struct {
	DSN      string `koanf:"dsn"`
	MaxConns int    `koanf:"max_conns"`
}

// RedisConfig enables the snapshot cache when Addr is set.
type RedisConfig struct {
	Addr               string `koanf:"addr"`
	Password           string `koanf:"password"`
	DB                 int    `koanf:"db"`
	SnapshotTTLSeconds int    `koanf:"snapshot_ttl_seconds"`
}

// DefaultFactors returns the stock factor set, all equally weighted.
func DefaultFactors() []FactorConfig {
	return []FactorConfig{
		{Key: "culture", Name: "Culture", Volatility: VolatilityStable, Weight: 1,
			Instructions: "Assess values, management style and employee sentiment."},
		{Key: "compensation", Name: "Compensation", Volatility: VolatilityVolatile, Weight: 1,
			Instructions: "Compare salary, equity and benefits against market rates for the role."},
		{Key: "growth", Name: "Growth", Volatility: VolatilityStable, Weight: 1,
			Instructions: "Judge promotion paths, mentorship and learning budgets."},
		{Key: "work_life_balance", Name: "Work-life balance", Volatility: VolatilityStable, Weight: 1,
			Instructions: "Look at hours, on-call load, leave policy and remote flexibility."},
		{Key: "reputation", Name: "Reputation", Volatility: VolatilityVolatile, Weight: 1,
			Instructions: "Summarize recent press, reviews and public controversies."},
		{Key: "stability", Name: "Stability", Volatility: VolatilityVolatile, Weight: 1,
			Instructions: "Check funding, layoffs, revenue trend and leadership churn."},
		{Key: "mission", Name: "Mission", Volatility: VolatilityStable, Weight: 1,
			Instructions: "Rate how meaningful and credible the company mission is."},
		{Key: "tech_stack", Name: "Tech stack", Volatility: VolatilityStable, Weight: 1,
			Instructions: "Evaluate the engineering stack, tooling and technical practices."},
	}
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		QueueSize:               10_000,
		WorkerCount:             runtime.NumCPU() * 2,
		DedupeSize:              50_000,
		ShardCount:              16,
		ResearchTimeoutMS:       30_000,
		StableTTLDays:           90,
		VolatileTTLDays:         7,
		EscalationThreshold:     2,
		GoMatchThreshold:        0.8,
		GoDesirabilityThreshold: 6.0,
		NoGoRequiredThreshold:   0.5,
		Factors:                 DefaultFactors(),
		Extraction: ExtractionConfig{
			Provider:      ProviderStatic,
			Model:         "gemini-2.5-flash",
			APIKeyEnv:     "GEMINI_API_KEY",
			Temperature:   0.1,
			MaxTokens:     4000,
			MaxTextLength: 20_000,
		},
		Postgres: PostgresConfig{MaxConns: 10},
		Redis:    RedisConfig{SnapshotTTLSeconds: 300},
	}
}

// ResearchTimeout returns ResearchTimeoutMS as a duration.
func (c *Config) ResearchTimeout() time.Duration {
	return time.Duration(c.ResearchTimeoutMS) * time.Millisecond
}

// StableTTL returns the STABLE class TTL.
func (c *Config) StableTTL() time.Duration { return days(c.StableTTLDays) }

// VolatileTTL returns the VOLATILE class TTL.
func (c *Config) VolatileTTL() time.Duration { return days(c.VolatileTTLDays) }

// SnapshotTTL returns how long presentation snapshots live in redis.
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.Redis.SnapshotTTLSeconds) * time.Second
}

// TTL returns the per-factor override, or zero when the class TTL applies.
func (f FactorConfig) TTL() time.Duration { return days(f.TTLDays) }

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Addr != "", "addr must not be empty")
	check(c.QueueSize > 0, "queue_size must be positive")
	check(c.WorkerCount > 0, "worker_count must be positive")
	check(c.DedupeSize > 0, "dedupe_size must be positive")
	check(c.ShardCount > 0, "shard_count must be positive")
	check(c.ResearchTimeoutMS > 0, "research_timeout_ms must be positive")
	check(c.StableTTLDays > 0, "stable_ttl_days must be positive")
	check(c.VolatileTTLDays > 0, "volatile_ttl_days must be positive")
	check(c.EscalationThreshold >= 1, "escalation_threshold must be at least 1")
	check(inUnit(c.GoMatchThreshold), "go_match_threshold must be within [0,1]")
	check(inUnit(c.NoGoRequiredThreshold), "no_go_required_threshold must be within [0,1]")
	check(c.GoDesirabilityThreshold >= 1 && c.GoDesirabilityThreshold <= 10,
		"go_desirability_threshold must be within [1,10]")
	check(len(c.Factors) > 0, "at least one factor is required")

	seen := make(map[string]struct{}, len(c.Factors))
	for i, f := range c.Factors {
		check(f.Key != "", "factors[%d]: key must not be empty", i)
		if _, dup := seen[f.Key]; dup {
			check(false, "factors[%d]: duplicate key %q", i, f.Key)
		}
		seen[f.Key] = struct{}{}
		v := strings.ToUpper(f.Volatility)
		check(v == VolatilityStable || v == VolatilityVolatile,
			"factors[%d]: volatility must be STABLE or VOLATILE", i)
		check(f.Weight >= 0 && f.Weight <= 2, "factors[%d]: weight must be within [0,2]", i)
		check(f.TTLDays >= 0, "factors[%d]: ttl_days must not be negative", i)
	}

	switch c.Extraction.Provider {
	case ProviderStatic, ProviderGemini:
	default:
		check(false, "extraction.provider must be %q or %q", ProviderStatic, ProviderGemini)
	}
	check(c.Postgres.MaxConns >= 0, "postgres.max_conns must not be negative")
	check(c.Redis.SnapshotTTLSeconds >= 0, "redis.snapshot_ttl_seconds must not be negative")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func inUnit(v float64) bool { return v >= 0 && v <= 1 }
