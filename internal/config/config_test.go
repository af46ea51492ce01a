package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE", "memory")
	t.Setenv("ADMIN_SECRET_KEY", "admin")
	t.Setenv("FINGERPRINT_SECRET", "fp")
	t.Setenv("RECEIPT_SECRET", "rc")
}

func TestNewConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.Port != "4000" {
		t.Fatalf("expected default port 4000, got %q", cfg.Port)
	}
	if cfg.CardPrefix != "4532" {
		t.Fatalf("expected default prefix 4532, got %q", cfg.CardPrefix)
	}
	if cfg.NameSourceTimeout != 5*time.Second {
		t.Fatalf("expected 5s name source timeout, got %s", cfg.NameSourceTimeout)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.NotificationsEnabled() {
		t.Fatalf("expected notifications disabled without smtp settings")
	}
}

func TestNewConfigRequiresSecrets(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{name: "admin secret", unset: "ADMIN_SECRET_KEY"},
		{name: "fingerprint secret", unset: "FINGERPRINT_SECRET"},
		{name: "receipt secret", unset: "RECEIPT_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.unset, "")
			if _, err := NewConfig(); err == nil {
				t.Fatalf("expected error when %s is empty", tt.unset)
			}
		})
	}
}

func TestNewConfigPostgresRequiresConnection(t *testing.T) {
	setRequired(t)
	t.Setenv("STORAGE", "postgres")
	t.Setenv("DB_CONN", "")
	if _, err := NewConfig(); err == nil {
		t.Fatalf("expected error without DB_CONN")
	}
}

func TestNewConfigRejectsBadPrefix(t *testing.T) {
	setRequired(t)
	t.Setenv("CARD_PREFIX", "45x2")
	if _, err := NewConfig(); err == nil {
		t.Fatalf("expected error for non numeric prefix")
	}
}
