// internal/config/normalize.go
package config

import (
	"sort"
	"strings"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Portal.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Portal.BaseURL), "/")

	// Weekdays: lower-case three-letter form, deduplicated.
	seen := map[string]bool{}
	days := cfg.Schedule.Weekdays[:0]
	for _, d := range cfg.Schedule.Weekdays {
		d = strings.ToLower(strings.TrimSpace(d))[:3]
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	cfg.Schedule.Weekdays = days

	// Login slots: sorted, deduplicated.
	slots := append([]int(nil), cfg.Session.LoginSlots...)
	sort.Ints(slots)
	uniq := slots[:0]
	for i, m := range slots {
		if i == 0 || m != slots[i-1] {
			uniq = append(uniq, m)
		}
	}
	cfg.Session.LoginSlots = uniq

	// One tick per slot: tolerance defaults to the poll interval.
	if cfg.Session.SlotTolerance == 0 {
		cfg.Session.SlotTolerance = cfg.Poll.Interval
	}

	// Label: truncate to 16 ASCII characters (8 registers).
	if len(cfg.StatusExport.Label) > 16 {
		cfg.StatusExport.Label = cfg.StatusExport.Label[:16]
	}
}
