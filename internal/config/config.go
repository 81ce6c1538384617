package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	StaticDir      string   `yaml:"static_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	RedisURL           string `yaml:"redis_url"`
	ResultWebhookURL   string `yaml:"result_webhook_url"`
	ResultWebhookToken string `yaml:"result_webhook_token"`

	DebugOps bool `yaml:"debug_ops"`

	EventRate       float64 `yaml:"event_rate"`
	EventBurst      int     `yaml:"event_burst"`
	SendQueue       int     `yaml:"send_queue"`
	PingIntervalSec int     `yaml:"ping_interval_sec"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ListenAddr:      ":3000",
		StaticDir:       "public",
		EventRate:       20,
		EventBurst:      40,
		SendQueue:       64,
		PingIntervalSec: 30,
	}
}

// Load reads CONFIG_FILE (YAML, optional) over the defaults, then applies env vars on top.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("STATIC_DIR")); v != "" {
		cfg.StaticDir = v
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("RESULT_WEBHOOK_URL")); v != "" {
		cfg.ResultWebhookURL = v
	}
	if v := strings.TrimSpace(os.Getenv("RESULT_WEBHOOK_TOKEN")); v != "" {
		cfg.ResultWebhookToken = v
	}

	if v := strings.TrimSpace(os.Getenv("RELAY_DEBUG_OPS")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.DebugOps = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("EVENT_RATE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.EventRate = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("EVENT_BURST")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EventBurst = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SEND_QUEUE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SendQueue = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("PING_INTERVAL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PingIntervalSec = n
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *AppConfig, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen_addr is required")
	}
	if c.EventRate <= 0 {
		return errors.New("event_rate must be positive")
	}
	if c.EventBurst <= 0 {
		return errors.New("event_burst must be positive")
	}
	if c.SendQueue <= 0 {
		return errors.New("send_queue must be positive")
	}
	if c.PingIntervalSec <= 0 {
		return errors.New("ping_interval_sec must be positive")
	}
	if c.RedisURL != "" {
		u, err := url.Parse(c.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return fmt.Errorf("REDIS_URL must be a redis:// or rediss:// URL")
		}
	}
	if c.ResultWebhookURL != "" {
		u, err := url.Parse(c.ResultWebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("RESULT_WEBHOOK_URL must be an http(s) URL")
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
