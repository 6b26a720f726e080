package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds QueryWarden configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Detection DetectionConfig `yaml:"detection"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Analyst   AnalystConfig   `yaml:"analyst"`
	Client    ClientConfig    `yaml:"client"`
	Batch     BatchConfig     `yaml:"batch"`
	Peers     []PeerConfig    `yaml:"peers"`
	Audit     AuditConfig     `yaml:"audit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr    string   `yaml:"addr"`     // HTTP listen address, e.g. ":8080"
	APIKeys []string `yaml:"api_keys"` // empty disables authentication
}

type ProviderConfig struct {
	Type                 string `yaml:"type"`        // e.g. "openai"
	BaseURL              string `yaml:"base_url"`    // e.g. "https://api.openai.com/v1"
	APIKeyEnv            string `yaml:"api_key_env"` // e.g. "OPENAI_API_KEY"
	APIKey               string `yaml:"api_key"`
	EmbeddingModel       string `yaml:"embedding_model"`
	ChatModel            string `yaml:"chat_model"`
	AllowPrivateNetworks bool   `yaml:"allow_private_networks"`
}

type DetectionConfig struct {
	MaxQueryLength   int `yaml:"max_query_length"`
	EscalationLength int `yaml:"escalation_length"`
}

// RetrievalConfig selects the document store and tunes hybrid search.
// Store is an explicit mode: "memory", "sqlite" or "none" (knowledge-base
// only, searches run over the in-process corpus).
type RetrievalConfig struct {
	Store          string  `yaml:"store"`
	SQLitePath     string  `yaml:"sqlite_path"`
	K              int     `yaml:"k"`
	ScoreThreshold float64 `yaml:"score_threshold"`
	HybridWeight   float64 `yaml:"hybrid_weight"`
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
}

type AnalystConfig struct {
	Enabled       bool    `yaml:"enabled"`
	ContextBudget int     `yaml:"context_budget"`
	Temperature   float32 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	BudgetMs      int     `yaml:"budget_ms"` // wall clock for one escalation
}

type ClientConfig struct {
	TimeoutMs        int `yaml:"timeout_ms"`
	Retries          int `yaml:"retries"`
	BackoffBaseMs    int `yaml:"backoff_base_ms"`
	BreakerThreshold int `yaml:"breaker_threshold"`
	CooldownMs       int `yaml:"cooldown_ms"`
}

type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type PeerConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	TokenEnv string `yaml:"token_env"`
}

type AuditConfig struct {
	Sinks []SinkConfig `yaml:"sinks"`
}

type SinkConfig struct {
	Type    string            `yaml:"type"` // file_jsonl | webhook
	Path    string            `yaml:"path"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
	Service  string `yaml:"service"`
	Version  string `yaml:"version"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, return default config
		if os.IsNotExist(err) {
			cfg := &Config{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}

	if cfg.Provider.Type == "" {
		cfg.Provider.Type = "openai"
	}
	if cfg.Provider.APIKeyEnv == "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKeyEnv = "OPENAI_API_KEY"
	}

	if cfg.Detection.MaxQueryLength <= 0 {
		cfg.Detection.MaxQueryLength = 10000
	}
	if cfg.Detection.EscalationLength <= 0 {
		cfg.Detection.EscalationLength = 500
	}

	if cfg.Retrieval.Store == "" {
		cfg.Retrieval.Store = "memory"
	}
	if cfg.Retrieval.K <= 0 {
		cfg.Retrieval.K = 5
	}
	if cfg.Retrieval.ScoreThreshold <= 0 {
		cfg.Retrieval.ScoreThreshold = 0.1
	}
	if cfg.Retrieval.HybridWeight <= 0 {
		cfg.Retrieval.HybridWeight = 0.3
	}
	if cfg.Retrieval.ChunkSize <= 0 {
		cfg.Retrieval.ChunkSize = 500
	}
	if cfg.Retrieval.ChunkOverlap <= 0 {
		cfg.Retrieval.ChunkOverlap = 50
	}

	if cfg.Analyst.ContextBudget <= 0 {
		cfg.Analyst.ContextBudget = 4000
	}
	if cfg.Analyst.Temperature <= 0 {
		cfg.Analyst.Temperature = 0.1
	}
	if cfg.Analyst.MaxTokens <= 0 {
		cfg.Analyst.MaxTokens = 700
	}
	if cfg.Analyst.BudgetMs <= 0 {
		cfg.Analyst.BudgetMs = 10000
	}

	if cfg.Client.TimeoutMs <= 0 {
		cfg.Client.TimeoutMs = 5000
	}
	if cfg.Client.Retries <= 0 {
		cfg.Client.Retries = 2
	}
	if cfg.Client.BackoffBaseMs <= 0 {
		cfg.Client.BackoffBaseMs = 200
	}
	if cfg.Client.BreakerThreshold <= 0 {
		cfg.Client.BreakerThreshold = 5
	}
	if cfg.Client.CooldownMs <= 0 {
		cfg.Client.CooldownMs = 30000
	}

	if cfg.Batch.Concurrency <= 0 {
		cfg.Batch.Concurrency = 4
	}

	if cfg.Telemetry.Service == "" {
		cfg.Telemetry.Service = "querywarden"
	}
}
