// internal/config/load_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FileWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_PORTAL_PASSWORD", "hunter2")
	t.Setenv("PORTAL_USERNAME", "")
	t.Setenv("PORTAL_PASSWORD", "")
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("CHAT_ID", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
portal:
  username: "2300001"
  password: "${TEST_PORTAL_PASSWORD}"
session:
  login_slots: [0, 20, 40]
  cooldown: 45m
schedule:
  end: "22:00"
poll:
  interval: 5m
  run_on_start: true
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}

	if cfg.Portal.Password != "hunter2" {
		t.Fatalf("password not expanded: %q", cfg.Portal.Password)
	}
	if cfg.Portal.BaseURL == "" || cfg.Session.Validity != 24*time.Hour {
		t.Fatalf("defaults lost: %+v", cfg.Portal)
	}
	if len(cfg.Session.LoginSlots) != 3 || cfg.Session.Cooldown != 45*time.Minute {
		t.Fatalf("session=%+v", cfg.Session)
	}
	if cfg.Schedule.End != "22:00" || cfg.Schedule.Start != "10:00" {
		t.Fatalf("schedule=%+v", cfg.Schedule)
	}
	if cfg.Poll.Interval != 5*time.Minute || !cfg.Poll.RunOnStart {
		t.Fatalf("poll=%+v", cfg.Poll)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate err=%v", err)
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("portal:\n  user_name: x\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("PORTAL_USERNAME", "2300001")
	t.Setenv("PORTAL_PASSWORD", "secret")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("CHAT_ID", "42")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if cfg.Portal.Username != "2300001" || cfg.Notify.Telegram.ChatID != "42" {
		t.Fatalf("env fallbacks not applied: %+v %+v", cfg.Portal, cfg.Notify.Telegram)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate err=%v", err)
	}
}
