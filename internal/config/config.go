package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds edgeguard configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Audit       AuditConfig       `yaml:"audit"`
	Fetcher     FetcherConfig     `yaml:"fetcher"`
	Extractor   ExtractorConfig   `yaml:"extractor"`
	Cache       CacheConfig       `yaml:"cache"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Allowlist   AllowlistConfig   `yaml:"allowlist"`
	Notify      NotifyConfig      `yaml:"notify"`
	Guard       GuardConfig       `yaml:"guard"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // HTTP listen address, e.g. ":8080"
}

type AuditConfig struct {
	Path     string `yaml:"path"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type FetcherConfig struct {
	BaseURL     string `yaml:"base_url"`
	BearerEnv   string `yaml:"bearer_env"` // e.g. "X_BEARER_TOKEN"
	Enabled     bool   `yaml:"enabled"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type ExtractorConfig struct {
	BaseURL   string `yaml:"base_url"`    // empty for api.openai.com
	APIKeyEnv string `yaml:"api_key_env"` // e.g. "OPENAI_API_KEY"
	Model     string `yaml:"model"`
}

type CacheConfig struct {
	Addr     string `yaml:"addr"` // empty disables caching
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLHours int    `yaml:"ttl_hours"`
}

type CorrelationConfig struct {
	Dir string `yaml:"dir"`
}

type AllowlistConfig struct {
	Path string `yaml:"path"` // empty disables auth
}

type NotifyConfig struct {
	WebhookURL string            `yaml:"webhook_url"`
	Headers    map[string]string `yaml:"headers"`
	QueueSize  int               `yaml:"queue_size"`
	Workers    int               `yaml:"workers"`

	// AllowPrivateWebhooks permits webhook URLs pointing at private or
	// loopback addresses, for local development.
	AllowPrivateWebhooks bool `yaml:"allow_private_webhooks"`
}

type GuardConfig struct {
	BundleDir string `yaml:"bundle_dir"` // empty disables the ONNX scorer
	SeqLen    int    `yaml:"seq_len"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
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

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = "data/audit.jsonl"
	}
	if cfg.Audit.MaxBytes <= 0 {
		cfg.Audit.MaxBytes = 10 * 1024 * 1024
	}
	if cfg.Fetcher.BearerEnv == "" {
		cfg.Fetcher.BearerEnv = "X_BEARER_TOKEN"
	}
	if cfg.Fetcher.TimeoutSecs <= 0 {
		cfg.Fetcher.TimeoutSecs = 15
	}
	if cfg.Extractor.APIKeyEnv == "" {
		cfg.Extractor.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Cache.TTLHours <= 0 {
		cfg.Cache.TTLHours = 6
	}
	if cfg.Correlation.Dir == "" {
		cfg.Correlation.Dir = "data/returns"
	}
	if cfg.Notify.QueueSize <= 0 {
		cfg.Notify.QueueSize = 256
	}
	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = 1
	}
	if cfg.Guard.SeqLen <= 0 {
		cfg.Guard.SeqLen = 256
	}
}

// CacheTTL converts the configured hours to a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}
