package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the router. Values come from the environment;
// an optional YAML file (CONFIG_FILE) can pre-seed them, with environment
// variables substituted into the raw file and taking precedence afterwards.
type Config struct {
	App struct {
		Env string `yaml:"env"`
	} `yaml:"app"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Upstreams struct {
		AURL    string `yaml:"a_url"`
		BURL    string `yaml:"b_url"`
		PayPath string `yaml:"pay_path"`
	} `yaml:"upstreams"`
	Auth struct {
		HeaderName  string `yaml:"header_name"`
		HeaderValue string `yaml:"header_value"`
	} `yaml:"auth"`
	Engine struct {
		RequestTimeoutMs int `yaml:"request_timeout_ms"`
		HedgeDelayMs     int `yaml:"hedge_delay_ms"`
		ConcurrencyLimit int `yaml:"concurrency_limit"`
	} `yaml:"engine"`
	Breaker struct {
		FailRate   float64 `yaml:"fail_rate"`
		MinSamples int     `yaml:"min_samples"`
		OpenSecs   int     `yaml:"open_secs"`
	} `yaml:"breaker"`
	Cache struct {
		Capacity   int `yaml:"capacity"`
		TTLSeconds int `yaml:"ttl_seconds"`
	} `yaml:"cache"`
	Otel struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"otel"`
}

// Load builds the configuration. configPath may be empty.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Substitute environment variables into the raw YAML before parsing.
		expandedFile := os.ExpandEnv(string(file))
		if err := yaml.Unmarshal([]byte(expandedFile), cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.Upstreams.AURL == "" {
		return nil, fmt.Errorf("UPSTREAM_A_URL missing")
	}
	if cfg.Upstreams.BURL == "" {
		return nil, fmt.Errorf("UPSTREAM_B_URL missing")
	}
	if cfg.Engine.HedgeDelayMs >= cfg.Engine.RequestTimeoutMs {
		return nil, fmt.Errorf("HEDGE_DELAY_MS (%d) must be below REQUEST_TIMEOUT_MS (%d)",
			cfg.Engine.HedgeDelayMs, cfg.Engine.RequestTimeoutMs)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	envString(&c.App.Env, "APP_ENV")
	envInt(&c.Server.Port, "PORT")
	envString(&c.Upstreams.AURL, "UPSTREAM_A_URL")
	envString(&c.Upstreams.BURL, "UPSTREAM_B_URL")
	envString(&c.Upstreams.PayPath, "UPSTREAM_PAY_PATH")
	envString(&c.Auth.HeaderName, "AUTH_HEADER_NAME")
	envString(&c.Auth.HeaderValue, "AUTH_HEADER_VALUE")
	envInt(&c.Engine.RequestTimeoutMs, "REQUEST_TIMEOUT_MS")
	envInt(&c.Engine.HedgeDelayMs, "HEDGE_DELAY_MS")
	envInt(&c.Engine.ConcurrencyLimit, "CONCURRENCY_LIMIT")
	envFloat(&c.Breaker.FailRate, "CB_FAIL_RATE")
	envInt(&c.Breaker.MinSamples, "CB_MIN_SAMPLES")
	envInt(&c.Breaker.OpenSecs, "CB_OPEN_SECS")
	envInt(&c.Cache.Capacity, "CACHE_CAPACITY")
	envInt(&c.Cache.TTLSeconds, "CACHE_TTL_SECONDS")
	envString(&c.Otel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 9999
	}
	if c.Upstreams.PayPath == "" {
		c.Upstreams.PayPath = "/payments"
	}
	if c.Auth.HeaderName == "" {
		c.Auth.HeaderName = "Authorization"
	}
	if c.Engine.RequestTimeoutMs == 0 {
		c.Engine.RequestTimeoutMs = 50
	}
	if c.Engine.HedgeDelayMs == 0 {
		c.Engine.HedgeDelayMs = 5
	}
	if c.Engine.ConcurrencyLimit == 0 {
		c.Engine.ConcurrencyLimit = 2048
	}
	if c.Breaker.FailRate == 0 {
		c.Breaker.FailRate = 0.30
	}
	if c.Breaker.MinSamples == 0 {
		c.Breaker.MinSamples = 20
	}
	if c.Breaker.OpenSecs == 0 {
		c.Breaker.OpenSecs = 5
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = 500000
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 30
	}
}

// RequestTimeout is the per-attempt and overall dispatch deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Engine.RequestTimeoutMs) * time.Millisecond
}

// HedgeDelay is how long the primary gets before the secondary is launched.
func (c *Config) HedgeDelay() time.Duration {
	return time.Duration(c.Engine.HedgeDelayMs) * time.Millisecond
}

// BreakerOpenFor is how long a tripped breaker sheds traffic.
func (c *Config) BreakerOpenFor() time.Duration {
	return time.Duration(c.Breaker.OpenSecs) * time.Second
}

// CacheTTL is the idempotency entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// Redacted returns a copy safe for logging.
func (c *Config) Redacted() Config {
	out := *c
	if out.Auth.HeaderValue != "" {
		out.Auth.HeaderValue = "***"
	}
	return out
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
