package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}

	if err := validateProviderConfig(cfg.Provider, cfg.Analyst.Enabled); err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Retrieval.Store)) {
	case "memory", "none":
	case "sqlite":
		if strings.TrimSpace(cfg.Retrieval.SQLitePath) == "" {
			return errors.New("retrieval.sqlite_path must be set when retrieval.store is sqlite")
		}
	default:
		return fmt.Errorf("retrieval.store must be memory, sqlite or none, got %q", cfg.Retrieval.Store)
	}
	if cfg.Retrieval.HybridWeight >= 1 {
		return fmt.Errorf("retrieval.hybrid_weight must be below 1, got %g", cfg.Retrieval.HybridWeight)
	}
	if cfg.Retrieval.ScoreThreshold > 1 {
		return fmt.Errorf("retrieval.score_threshold must be at most 1, got %g", cfg.Retrieval.ScoreThreshold)
	}
	if cfg.Retrieval.ChunkOverlap >= cfg.Retrieval.ChunkSize {
		return fmt.Errorf("retrieval.chunk_overlap %d must be below chunk_size %d",
			cfg.Retrieval.ChunkOverlap, cfg.Retrieval.ChunkSize)
	}

	if cfg.Analyst.Temperature > 2 {
		return fmt.Errorf("analyst.temperature must be at most 2, got %g", cfg.Analyst.Temperature)
	}

	for i, p := range cfg.Peers {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("peer %d missing name", i)
		}
		u, err := url.Parse(p.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("peer %q has invalid url", p.Name)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("peer %q url must be http or https", p.Name)
		}
		if err := blockPrivateHost(u.Host, cfg.Provider.AllowPrivateNetworks); err != nil {
			return fmt.Errorf("peer %q url blocked: %w", p.Name, err)
		}
	}

	if err := validateAuditConfig(cfg.Audit); err != nil {
		return err
	}

	if err := validateTelemetryConfig(cfg.Telemetry); err != nil {
		return err
	}

	return nil
}

func validateProviderConfig(p ProviderConfig, analystEnabled bool) error {
	if strings.TrimSpace(p.Type) == "" {
		return errors.New("provider.type must be set")
	}
	if strings.EqualFold(p.Type, "openai") && analystEnabled {
		if strings.TrimSpace(p.APIKeyEnv) == "" && strings.TrimSpace(p.APIKey) == "" {
			return errors.New("provider missing api key (api_key_env or api_key)")
		}
	}
	if p.BaseURL != "" {
		u, err := url.Parse(p.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("provider has invalid base_url")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("provider base_url must be http or https")
		}
		if err := blockPrivateHost(u.Host, p.AllowPrivateNetworks); err != nil {
			return fmt.Errorf("provider base_url blocked: %w", err)
		}
	}
	return nil
}

func validateAuditConfig(a AuditConfig) error {
	for i, s := range a.Sinks {
		switch strings.ToLower(strings.TrimSpace(s.Type)) {
		case "file_jsonl":
			if strings.TrimSpace(s.Path) == "" {
				return fmt.Errorf("audit sink %d (file_jsonl) missing path", i)
			}
		case "webhook":
			if strings.TrimSpace(s.URL) == "" {
				return fmt.Errorf("audit sink %d (webhook) missing url", i)
			}
			u, err := url.Parse(s.URL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("audit sink %d (webhook) has invalid url", i)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("audit sink %d (webhook) url must be http or https", i)
			}
		default:
			return fmt.Errorf("audit sink %d has unknown type %q", i, s.Type)
		}
	}
	return nil
}

func validateTelemetryConfig(t TelemetryConfig) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	if t.Protocol != "" {
		switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
		case "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
		}
	}
	return nil
}

func blockPrivateHost(hostport string, allowPrivate bool) error {
	if allowPrivate {
		return nil
	}
	host := hostport
	if strings.Contains(hostport, "]") || strings.Contains(hostport, ":") {
		h, _, err := net.SplitHostPort(hostport)
		if err == nil {
			host = h
		}
	}
	lc := strings.ToLower(strings.TrimSpace(host))
	if lc == "localhost" {
		return errors.New("private network host localhost blocked for SSRF safety")
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return fmt.Errorf("private network IP %s blocked for SSRF safety", ip.String())
		}
		return nil
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	privateBlocks := []*net.IPNet{
		{IP: net.ParseIP("127.0.0.0"), Mask: net.CIDRMask(8, 32)},
		{IP: net.ParseIP("10.0.0.0"), Mask: net.CIDRMask(8, 32)},
		{IP: net.ParseIP("172.16.0.0"), Mask: net.CIDRMask(12, 32)},
		{IP: net.ParseIP("192.168.0.0"), Mask: net.CIDRMask(16, 32)},
		{IP: net.ParseIP("169.254.0.0"), Mask: net.CIDRMask(16, 32)},
		{IP: net.ParseIP("::1"), Mask: net.CIDRMask(128, 128)},
		{IP: net.ParseIP("fc00::"), Mask: net.CIDRMask(7, 128)},
		{IP: net.ParseIP("fe80::"), Mask: net.CIDRMask(10, 128)},
	}
	for _, block := range privateBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
