package config

import (
	"time"

	redisclient "github.com/fedhatrac/categorizer/internal/infra/redis"
	"github.com/fedhatrac/categorizer/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Redis      redisclient.Config `yaml:"redis"`
	Database   postgres.Config    `yaml:"database"`
	Pipeline   PipelineConfig     `yaml:"pipeline"`
	Categories CategoriesConfig   `yaml:"categories"`
	Features   FeaturesConfig     `yaml:"features"`
	Refresh    RefreshConfig      `yaml:"refresh"`
	Events     EventsConfig       `yaml:"events"`
	Rules      RulesConfig        `yaml:"rules"`
	Logging    LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds the ops HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// PipelineConfig holds worker pool tuning.
type PipelineConfig struct {
	Workers     int      `yaml:"workers"`
	BatchSize   int      `yaml:"batch_size"`
	PollTimeout Duration `yaml:"poll_timeout"`
	GuardTTL    Duration `yaml:"guard_ttl"`
}

// CategoriesConfig holds category table conventions.
type CategoriesConfig struct {
	// SentinelID is the reserved "uncategorized" category id. Rows carrying
	// it are treated the same as rows with no category at all.
	SentinelID int64 `yaml:"sentinel_id"`
}

// FeaturesConfig holds feature flags.
type FeaturesConfig struct {
	MLEnabled         bool `yaml:"ml_enabled"`
	AmountRules       bool `yaml:"amount_rules"`
	DateRules         bool `yaml:"date_rules"`
	BackfillOnStartup bool `yaml:"backfill_on_startup"`
}

// RefreshConfig holds model refresh scheduling.
type RefreshConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
	Window   Duration `yaml:"window"`
}

// EventsConfig holds the optional Kafka event publisher settings.
// Publishing is active only when Brokers is non-empty.
type EventsConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RulesConfig holds the static categorization rules. Both lists are
// ordered; earlier entries win ties.
type RulesConfig struct {
	Keywords  []KeywordRule  `yaml:"keywords"`
	Merchants []MerchantRule `yaml:"merchants"`
}

// KeywordRule maps a category to the keywords that select it.
type KeywordRule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// MerchantRule maps a merchant token to a category.
type MerchantRule struct {
	Token    string `yaml:"token"`
	Category string `yaml:"category"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Duration parses "2s"/"5m" style YAML strings into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }
