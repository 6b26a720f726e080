package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Retrieval.Store != "memory" || cfg.Retrieval.K != 5 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadOverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
server:
  addr: ":9090"
retrieval:
  store: sqlite
  sqlite_path: /tmp/kb.db
  k: 8
analyst:
  enabled: true
client:
  retries: 4
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" || cfg.Retrieval.K != 8 || cfg.Client.Retries != 4 {
		t.Fatalf("overrides lost: %+v", cfg)
	}
	if cfg.Retrieval.ScoreThreshold != 0.1 || cfg.Batch.Concurrency != 4 {
		t.Fatalf("defaults not filled in: %+v", cfg)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejectsUnknownStore(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.Store = "redis"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for unknown store")
	}
}

func TestValidateSQLiteRequiresPath(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.Store = "sqlite"
	cfg.Retrieval.SQLitePath = ""
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for sqlite store without path")
	}
}

func TestValidateRejectsBadHybridWeight(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.HybridWeight = 1.5
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for hybrid weight above 1")
	}
}

func TestValidateAnalystRequiresAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Analyst.Enabled = true
	cfg.Provider.APIKeyEnv = ""
	cfg.Provider.APIKey = ""
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for enabled analyst without api key")
	}
}

func TestValidatePeerURLs(t *testing.T) {
	cfg := validConfig()
	cfg.Peers = []PeerConfig{{Name: "a", URL: "ftp://peers.example.com"}}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for non-http peer url")
	}

	cfg.Peers = []PeerConfig{{Name: "a", URL: "http://127.0.0.1:9000"}}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected private peer host to be blocked")
	}

	cfg.Provider.AllowPrivateNetworks = true
	if err := Validate(cfg); err != nil {
		t.Fatalf("allow_private_networks must permit private peers: %v", err)
	}
}

func TestValidateAuditSinks(t *testing.T) {
	cfg := validConfig()
	cfg.Audit.Sinks = []SinkConfig{{Type: "file_jsonl"}}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for file sink without path")
	}
	cfg.Audit.Sinks = []SinkConfig{{Type: "carrier_pigeon"}}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for unknown sink type")
	}
	cfg.Audit.Sinks = []SinkConfig{{Type: "file_jsonl", Path: "/var/log/querywarden/audit.jsonl"}}
	if err := Validate(cfg); err != nil {
		t.Fatalf("valid sink rejected: %v", err)
	}
}

func TestValidateTelemetry(t *testing.T) {
	cfg := validConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for enabled telemetry without endpoint")
	}
	cfg.Telemetry.Endpoint = "collector:4317"
	cfg.Telemetry.Protocol = "udp"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for bad telemetry protocol")
	}
}
