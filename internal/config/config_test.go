package config

import (
	"os"
	"path/filepath"
	"testing"
)

var envKeys = []string{
	"CONFIG_FILE", "LISTEN_ADDR", "STATIC_DIR", "ALLOWED_ORIGINS", "REDIS_URL",
	"RESULT_WEBHOOK_URL", "RESULT_WEBHOOK_TOKEN", "RELAY_DEBUG_OPS", "EVENT_RATE", "EVENT_BURST",
	"SEND_QUEUE", "PING_INTERVAL_SEC",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":3000" || cfg.StaticDir != "public" || cfg.DebugOps {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.EventRate != 20 || cfg.EventBurst != 40 || cfg.SendQueue != 64 || cfg.PingIntervalSec != 30 {
		t.Fatalf("numeric defaults: %+v", cfg)
	}
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTEN_ADDR", " :8080 ")
	t.Setenv("ALLOWED_ORIGINS", "example.com, *.example.org ,")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("RELAY_DEBUG_OPS", "true")
	t.Setenv("EVENT_RATE", "2.5")
	t.Setenv("SEND_QUEUE", "-3")
	t.Setenv("RESULT_WEBHOOK_URL", "https://hooks.test/results")
	t.Setenv("RESULT_WEBHOOK_TOKEN", " s3cret ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" || !cfg.DebugOps || cfg.EventRate != 2.5 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "*.example.org" {
		t.Fatalf("origins: %v", cfg.AllowedOrigins)
	}
	if cfg.SendQueue != 64 {
		t.Fatalf("non-positive env must be ignored, got %d", cfg.SendQueue)
	}
	if cfg.ResultWebhookURL != "https://hooks.test/results" || cfg.ResultWebhookToken != "s3cret" {
		t.Fatalf("webhook settings: %q %q", cfg.ResultWebhookURL, cfg.ResultWebhookToken)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "relay.yaml")
	body := "listen_addr: \":4000\"\nstatic_dir: web\nallowed_origins: [a.test]\nevent_burst: 5\ndebug_ops: true\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("STATIC_DIR", "override")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":4000" || cfg.EventBurst != 5 || !cfg.DebugOps {
		t.Fatalf("file not applied: %+v", cfg)
	}
	if cfg.StaticDir != "override" {
		t.Fatalf("env must win over file, got %q", cfg.StaticDir)
	}
	if cfg.SendQueue != 64 {
		t.Fatalf("unset file keys keep defaults, got %d", cfg.SendQueue)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]func(t *testing.T){
		"redis scheme": func(t *testing.T) { t.Setenv("REDIS_URL", "http://localhost:6379") },
		"webhook url":  func(t *testing.T) { t.Setenv("RESULT_WEBHOOK_URL", "not a url") },
		"file burst": func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			_ = os.WriteFile(path, []byte("event_burst: 0\n"), 0o600)
			t.Setenv("CONFIG_FILE", path)
		},
		"missing file": func(t *testing.T) { t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml")) },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			setup(t)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
