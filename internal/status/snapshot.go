// internal/status/snapshot.go
package status

import "time"

// Snapshot is the current health of the polling loop.
// It carries no history beyond the last cycle.
type Snapshot struct {
	Health          uint16    `json:"health"`
	LastErrorCode   uint16    `json:"last_error_code"`
	SecondsInError  uint16    `json:"seconds_in_error"`
	CoursesTracked  uint16    `json:"courses_tracked"`
	EventsLastCycle uint16    `json:"events_last_cycle"`
	LastCycleAt     time.Time `json:"last_cycle_at"`
	LastError       string    `json:"last_error,omitempty"`
}

// HealthName renders a health code for humans.
func HealthName(h uint16) string {
	switch h {
	case HealthUnknown:
		return "unknown"
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthWaiting:
		return "waiting"
	default:
		return "invalid"
	}
}
