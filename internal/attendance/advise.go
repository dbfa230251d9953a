// internal/attendance/advise.go
package attendance

// Threshold is the minimum attendance percentage.
const Threshold = 75.0

// Advisory is the guidance attached to a notification.
// Exactly one of RequiredStreak / SafeSkips is meaningful, chosen by Below.
type Advisory struct {
	Percentage     float64 `json:"percentage"`
	Below          bool    `json:"below"`
	RequiredStreak int     `json:"required_streak"`
	SafeSkips      int     `json:"safe_skips"`
}

// Advise solves present/(total+n) >= 0.75 for n.
//
// Below threshold: n consecutive attended lectures, ceil((0.75t-p)/0.25) = 3t-4p.
// At or above: n missed lectures, floor(p/0.75-t) = floor((4p-3t)/3).
// Integer forms keep the boundaries exact.
func Advise(present, total int) Advisory {
	var a Advisory
	if total > 0 {
		a.Percentage = float64(present) / float64(total) * 100
	}

	if total <= 0 || 4*present < 3*total {
		a.Below = true
		a.RequiredStreak = max(0, 3*total-4*present)
		return a
	}

	a.SafeSkips = max(0, (4*present-3*total)/3)
	return a
}
