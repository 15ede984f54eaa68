package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"ESCALATESAFE_MODE", "ESCALATESAFE_PORT", "VAULT_KEY_BASE64"} {
		os.Unsetenv(k)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "api" {
		t.Errorf("Mode = %q, want api", cfg.Mode)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DefaultConfidenceThreshold != 0.5 {
		t.Errorf("DefaultConfidenceThreshold = %v, want 0.5", cfg.DefaultConfidenceThreshold)
	}
	if cfg.IsProduction() {
		t.Errorf("IsProduction() = true for default environment")
	}
}

func TestListenAddr(t *testing.T) {
	cfg := &Config{Host: "127.0.0.1", Port: 9090}
	if got := cfg.ListenAddr(); got != "127.0.0.1:9090" {
		t.Errorf("ListenAddr() = %q", got)
	}
}
