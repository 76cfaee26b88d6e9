package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
	StaticDir         string `json:"static_dir"`
}

type Upstream struct {
	// BaseURL is the chart/crumb API host.
	BaseURL string `json:"base_url"`
	// CookieURL is the landing endpoint that issues session cookies.
	CookieURL            string `json:"cookie_url"`
	UserAgent            string `json:"user_agent"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	Burst                int    `json:"burst"`
}

type Cache struct {
	QuoteTTLSeconds   int `json:"quote_ttl_sec"`
	HistoryTTLSeconds int `json:"history_ttl_sec"`
}

type Config struct {
	Server   Server   `json:"server"`
	Upstream Upstream `json:"upstream"`
	Cache    Cache    `json:"cache"`
}

func Default() Config {
	return Config{
		Server: Server{
			Port:              "8080",
			RequestTimeoutSec: 10,
			StaticDir:         "web",
		},
		Upstream: Upstream{
			BaseURL:              "https://query2.finance.yahoo.com",
			CookieURL:            "https://fc.yahoo.com/",
			UserAgent:            "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/91.0.4472.124",
			MaxRequestsPerMinute: 0,
			Burst:                1,
		},
		Cache: Cache{
			QuoteTTLSeconds:   30,
			HistoryTTLSeconds: 60,
		},
	}
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Server.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.Server.StaticDir = v
	}
	if v := os.Getenv("UPSTREAM_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("UPSTREAM_COOKIE_URL"); v != "" {
		cfg.Upstream.CookieURL = v
	}
	if v := os.Getenv("UPSTREAM_USER_AGENT"); v != "" {
		cfg.Upstream.UserAgent = v
	}
	if v := os.Getenv("UPSTREAM_MAX_RPM"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Upstream.MaxRequestsPerMinute = x
		}
	}
	if v := os.Getenv("UPSTREAM_BURST"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Upstream.Burst = x
		}
	}
	if v := os.Getenv("QUOTE_CACHE_TTL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Cache.QuoteTTLSeconds = x
		}
	}
	if v := os.Getenv("HISTORY_CACHE_TTL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.Cache.HistoryTTLSeconds = x
		}
	}
}
