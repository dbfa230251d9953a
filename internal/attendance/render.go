// internal/attendance/render.go
package attendance

import (
	"fmt"
	"strings"
)

// Render builds the Markdown notification text for one event.
func Render(ev Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📘 %s\n", courseTitle(ev.CourseName))
	fmt.Fprintf(&b, "%s Marked as *%s*\n", kindEmoji(ev.Kind), ev.Kind)
	fmt.Fprintf(&b, "Attendance: %d/%d (%.2f%%)",
		ev.Counter.Present, ev.Counter.Total, ev.Advisory.Percentage)

	if ev.Advisory.Below {
		fmt.Fprintf(&b, "\n⚠️ Below 75%%! You must attend at least %d more lecture(s) in a row.",
			ev.Advisory.RequiredStreak)
	} else {
		fmt.Fprintf(&b, "\n✅ Safe! You can skip up to %d lecture(s) while staying ≥75%%.",
			ev.Advisory.SafeSkips)
	}

	return b.String()
}

func kindEmoji(k EventKind) string {
	switch k {
	case Present:
		return "✅"
	case Absent:
		return "❌"
	default:
		return "❔"
	}
}

// courseTitle renders the course name in bold. Legacy Telegram Markdown
// takes text inside an entity literally and cannot escape its closing
// '*', so a name containing '*' is sent unbolded with escapes instead.
func courseTitle(name string) string {
	if strings.Contains(name, "*") {
		return escapeMarkdown(name)
	}
	return "*" + name + "*"
}

// escapeMarkdown neutralises legacy Telegram Markdown control characters
// outside an entity.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("*", "\\*", "_", "\\_", "`", "\\`", "[", "\\[")
	return r.Replace(s)
}
