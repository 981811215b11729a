package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.BatchSize == 0 {
		cfg.Pipeline.BatchSize = 10
	}
	if cfg.Pipeline.PollTimeout == 0 {
		cfg.Pipeline.PollTimeout = Duration(2 * time.Second)
	}
	if cfg.Pipeline.GuardTTL == 0 {
		cfg.Pipeline.GuardTTL = Duration(60 * time.Second)
	}
	if cfg.Categories.SentinelID == 0 {
		cfg.Categories.SentinelID = 32
	}
	if cfg.Refresh.Interval == 0 {
		cfg.Refresh.Interval = Duration(24 * time.Hour)
	}
	if cfg.Refresh.Window == 0 {
		cfg.Refresh.Window = Duration(24 * time.Hour)
	}
	if cfg.Redis.Queue == "" {
		cfg.Redis.Queue = "uncategorized_transactions"
	}
	if cfg.Redis.DeadLetterQueue == "" {
		cfg.Redis.DeadLetterQueue = cfg.Redis.Queue + ":dead"
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = "transaction.categorized"
	}
}

func validate(cfg *AppConfig) error {
	if cfg.Pipeline.Workers < 1 {
		return fmt.Errorf("invalid config: pipeline.workers must be positive, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.BatchSize < 1 {
		return fmt.Errorf("invalid config: pipeline.batch_size must be positive, got %d", cfg.Pipeline.BatchSize)
	}
	if cfg.Pipeline.GuardTTL.Std() <= 0 {
		return fmt.Errorf("invalid config: pipeline.guard_ttl must be positive")
	}
	if cfg.Redis.Queue == cfg.Redis.DeadLetterQueue {
		return fmt.Errorf("invalid config: dead letter queue must be named distinctly from the main queue")
	}
	for i, r := range cfg.Rules.Keywords {
		if r.Category == "" {
			return fmt.Errorf("invalid config: rules.keywords[%d] has no category", i)
		}
	}
	for i, r := range cfg.Rules.Merchants {
		if r.Token == "" || r.Category == "" {
			return fmt.Errorf("invalid config: rules.merchants[%d] is incomplete", i)
		}
	}
	return nil
}
