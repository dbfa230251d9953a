// internal/config/load.go
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // schedule.timezone must resolve in minimal containers

	"gopkg.in/yaml.v3"
)

// Default returns the configuration used for every field the file omits.
// The schedule follows the portal's working hours (weekdays, 10:00-20:00 IST).
func Default() Config {
	return Config{
		Portal: PortalConfig{
			BaseURL:   "https://kiet.cybervidya.net",
			TimeoutMs: 15000,
		},
		Session: SessionConfig{
			Validity:    24 * time.Hour,
			RenewAfter:  20 * time.Hour,
			BackoffBase: time.Minute,
			Cooldown:    30 * time.Minute,
			MaxFailures: 3,
			LoginSlots:  []int{0, 30},
		},
		Notify: NotifyConfig{
			Telegram: TelegramConfig{TimeoutMs: 10000},
		},
		Store: StoreConfig{
			File: "attendance_state.json",
			Key:  "default",
		},
		GitSync: GitSyncConfig{
			RepoDir: ".",
			Remote:  "origin",
			Branch:  "main",
		},
		Schedule: ScheduleConfig{
			Timezone: "Asia/Kolkata",
			Weekdays: []string{"mon", "tue", "wed", "thu", "fri"},
			Start:    "10:00",
			End:      "20:00",
		},
		Poll: PollConfig{
			Interval: 10 * time.Minute,
		},
		StatusExport: StatusExportConfig{
			TimeoutMs: 2000,
		},
	}
}

// Load reads the YAML file at path over Default(). ${VAR} references are
// expanded from the environment first, so secrets can stay in .env.
// An empty path yields defaults plus environment fallbacks.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		expanded := os.ExpandEnv(string(raw))

		dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

// applyEnv fills secrets the file left empty from well-known variables.
func applyEnv(cfg *Config) {
	fill := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}

	fill(&cfg.Portal.Username, "PORTAL_USERNAME")
	fill(&cfg.Portal.Password, "PORTAL_PASSWORD")
	fill(&cfg.Notify.Telegram.BotToken, "BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	fill(&cfg.Notify.Telegram.ChatID, "CHAT_ID", "TELEGRAM_CHAT_ID")
	fill(&cfg.Store.PostgresDSN, "DATABASE_URL")
	fill(&cfg.GitSync.SSHKeyPath, "GIT_SSH_KEY_PATH")
}
