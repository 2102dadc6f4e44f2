package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDatabaseDSN      = "DEALGRAPH_DATABASE_DSN"
	EnvEnrichmentAPIKey = "DEALGRAPH_ENRICHMENT_API_KEY"
	EnvNeo4jPassword    = "DEALGRAPH_NEO4J_PASSWORD"
	EnvNATSURL          = "DEALGRAPH_NATS_URL"
)

type ProjectConfig struct {
	Project    string           `yaml:"project"`
	Version    int              `yaml:"version"`
	Database   DatabaseConfig   `yaml:"database"`
	Neo4j      Neo4jConfig      `yaml:"neo4j"`
	Sources    []Source         `yaml:"sources"`
	Exclude    []string         `yaml:"exclude"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Health     HealthConfig     `yaml:"health"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Source is a set of CRM export files written by one provider.
type Source struct {
	Name     string   `yaml:"name"`
	Provider string   `yaml:"provider"`
	Paths    []string `yaml:"paths"`
}

type EnrichmentConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	APIKey        string        `yaml:"api_key"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
	Concurrency   int           `yaml:"concurrency"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
}

func (e EnrichmentConfig) Enabled() bool {
	return strings.TrimSpace(e.Endpoint) != ""
}

type TelemetryConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

type ScoringConfig struct {
	RecencyDays int `yaml:"recency_days"`
}

func (s ScoringConfig) RecencyWindow() time.Duration {
	return time.Duration(s.RecencyDays) * 24 * time.Hour
}

type HealthConfig struct {
	MaxHotLeads       int `yaml:"max_hot_leads"`
	MaxRisks          int `yaml:"max_risks"`
	MaxActions        int `yaml:"max_actions"`
	MaxActionsPerDeal int `yaml:"max_actions_per_deal"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return &cfg, nil
}

func applyEnv(cfg *ProjectConfig) {
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv(EnvEnrichmentAPIKey); v != "" {
		cfg.Enrichment.APIKey = v
	}
	if v := os.Getenv(EnvNeo4jPassword); v != "" {
		cfg.Neo4j.Password = v
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		cfg.Telemetry.NATSURL = v
	}
}

func applyDefaults(cfg *ProjectConfig) {
	if cfg.Scoring.RecencyDays == 0 {
		cfg.Scoring.RecencyDays = 90
	}
	if cfg.Enrichment.RatePerSecond == 0 {
		cfg.Enrichment.RatePerSecond = 5
	}
	if cfg.Enrichment.Burst == 0 {
		cfg.Enrichment.Burst = 1
	}
	if cfg.Enrichment.Concurrency == 0 {
		cfg.Enrichment.Concurrency = 4
	}
	if cfg.Enrichment.Timeout == 0 {
		cfg.Enrichment.Timeout = 10 * time.Second
	}
	if cfg.Enrichment.MaxRetries == 0 {
		cfg.Enrichment.MaxRetries = 3
	}
	if cfg.Telemetry.Subject == "" {
		cfg.Telemetry.Subject = "dealgraph.telemetry"
	}
	if cfg.Health.MaxHotLeads == 0 {
		cfg.Health.MaxHotLeads = 5
	}
	if cfg.Health.MaxRisks == 0 {
		cfg.Health.MaxRisks = 5
	}
	if cfg.Health.MaxActions == 0 {
		cfg.Health.MaxActions = 3
	}
	if cfg.Health.MaxActionsPerDeal == 0 {
		cfg.Health.MaxActionsPerDeal = 3
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database dsn is required")
	}

	seen := make(map[string]struct{})
	for i, src := range cfg.Sources {
		if strings.TrimSpace(src.Name) == "" {
			return fmt.Errorf("source %d name is required", i)
		}
		if strings.TrimSpace(src.Provider) == "" {
			return fmt.Errorf("source %s provider is required", src.Name)
		}
		if len(src.Paths) == 0 {
			return fmt.Errorf("source %s paths are required", src.Name)
		}
		key := strings.ToLower(src.Name)
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate source name: %s", src.Name)
		}
		seen[key] = struct{}{}
	}

	if cfg.Scoring.RecencyDays < 0 {
		return fmt.Errorf("scoring recency_days must be positive: %d", cfg.Scoring.RecencyDays)
	}
	if cfg.Enrichment.RatePerSecond < 0 || cfg.Enrichment.Burst < 0 || cfg.Enrichment.Concurrency < 0 {
		return fmt.Errorf("enrichment limits must be positive")
	}
	if cfg.Health.MaxHotLeads < 0 || cfg.Health.MaxRisks < 0 || cfg.Health.MaxActions < 0 || cfg.Health.MaxActionsPerDeal < 0 {
		return fmt.Errorf("health limits must be positive")
	}

	return nil
}
