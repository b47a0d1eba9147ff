package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// API key roles. An admin key passes every role check.
const (
	RoleRead  = "read"
	RoleAdmin = "admin"
)

type APIKey struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
	Role string `yaml:"role"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type CollectorConfig struct {
	BasicUser    string          `yaml:"basic_user"`
	BasicPass    string          `yaml:"basic_pass"`
	Mode         string          `yaml:"mode"`
	MaxBodyBytes int64           `yaml:"max_body_bytes"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type RegistryConfig struct {
	Size int `yaml:"size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	ListenAddr string          `yaml:"listen_addr"`
	DBDSN      string          `yaml:"db_dsn"`
	Collector  CollectorConfig `yaml:"collector"`
	NATS       NATSConfig      `yaml:"nats"`
	Registry   RegistryConfig  `yaml:"registry"`
	APIKeys    []APIKey        `yaml:"api_keys"`
	Log        LogConfig       `yaml:"log"`
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = "127.0.0.1:2811"
	}
	if c.Collector.Mode == "" {
		c.Collector.Mode = "concurrent"
	}
	if c.Collector.MaxBodyBytes <= 0 {
		c.Collector.MaxBodyBytes = 1 << 20
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = "monit.events"
	}
	if c.Registry.Size <= 0 {
		c.Registry.Size = 1024
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	for i := range c.APIKeys {
		if c.APIKeys[i].Role == "" {
			c.APIKeys[i].Role = RoleRead
		}
	}
}

func (c *Config) validate() error {
	switch c.Collector.Mode {
	case "concurrent", "sequential":
	default:
		return fmt.Errorf("collector.mode: unknown mode %q", c.Collector.Mode)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if c.Collector.RateLimit.RPS < 0 || c.Collector.RateLimit.Burst < 0 {
		return fmt.Errorf("collector.rate_limit: rps and burst must not be negative")
	}
	for i, k := range c.APIKeys {
		if k.Key == "" {
			return fmt.Errorf("api_keys[%d]: key is required", i)
		}
		switch k.Role {
		case RoleRead, RoleAdmin:
		default:
			return fmt.Errorf("api_keys[%d]: unknown role %q", i, k.Role)
		}
	}
	return nil
}
