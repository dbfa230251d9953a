// internal/config/config.go
package config

import "time"

type Config struct {
	Portal       PortalConfig       `yaml:"portal"`
	Session      SessionConfig      `yaml:"session"`
	Notify       NotifyConfig       `yaml:"notify"`
	Store        StoreConfig        `yaml:"store"`
	GitSync      GitSyncConfig      `yaml:"git_sync"`
	Schedule     ScheduleConfig     `yaml:"schedule"`
	Poll         PollConfig         `yaml:"poll"`
	HTTP         HTTPConfig         `yaml:"http"`
	StatusExport StatusExportConfig `yaml:"status_export"`
}

// ---- PORTAL ----

type PortalConfig struct {
	BaseURL   string `yaml:"base_url"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- SESSION ----

type SessionConfig struct {
	Validity      time.Duration `yaml:"validity"`
	RenewAfter    time.Duration `yaml:"renew_after"`
	BackoffBase   time.Duration `yaml:"backoff_base"`
	Cooldown      time.Duration `yaml:"cooldown"`
	MaxFailures   int           `yaml:"max_failures"`
	LoginSlots    []int         `yaml:"login_slots"`    // minutes of the hour
	SlotTolerance time.Duration `yaml:"slot_tolerance"` // 0 => poll interval
}

// ---- NOTIFY ----

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig is optional; with no bot token messages go to the log.
type TelegramConfig struct {
	BaseURL   string `yaml:"base_url"`
	BotToken  string `yaml:"bot_token"`
	ChatID    string `yaml:"chat_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- STORE ----

type StoreConfig struct {
	File        string `yaml:"file"`         // local tier, always used
	PostgresDSN string `yaml:"postgres_dsn"` // remote tier (optional)
	Key         string `yaml:"key"`
}

// ---- GIT SYNC ----

type GitSyncConfig struct {
	Enabled     bool   `yaml:"enabled"`
	RepoDir     string `yaml:"repo_dir"`
	Remote      string `yaml:"remote"`
	RemoteURL   string `yaml:"remote_url"`
	Branch      string `yaml:"branch"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
	SSHKeyPath  string `yaml:"ssh_key_path"`
	Push        bool   `yaml:"push"`
}

// ---- SCHEDULE ----

type ScheduleConfig struct {
	Timezone string   `yaml:"timezone"`
	Weekdays []string `yaml:"weekdays"`
	Start    string   `yaml:"start"` // HH:MM
	End      string   `yaml:"end"`   // HH:MM, inclusive
}

// ---- POLL ----

type PollConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RunOnStart bool          `yaml:"run_on_start"`
}

// ---- HTTP ----

type HTTPConfig struct {
	Listen string `yaml:"listen"` // empty disables the status API
}

// ---- STATUS EXPORT (Modbus, opt-in) ----

type StatusExportConfig struct {
	Endpoint  string `yaml:"endpoint"` // empty disables
	UnitID    uint8  `yaml:"unit_id"`
	BaseSlot  uint16 `yaml:"base_slot"`
	Label     string `yaml:"label"`
	TimeoutMs int    `yaml:"timeout_ms"`
}
