// internal/attendance/classify.go
package attendance

// Classify compares the previous counters (nil when the course is new)
// with the freshly fetched ones.
//
// A rise in Total means a lecture was held; whether Present rose with it
// decides attendance. Rules are ordered; the first match wins.
func Classify(old *CourseCounter, cur CourseCounter) EventKind {
	var oldPresent, oldTotal int
	if old != nil {
		oldPresent = old.Present
		oldTotal = old.Total
	}

	switch {
	case cur.Present == oldPresent && cur.Total == oldTotal:
		return NoChange
	case cur.Total == oldTotal && cur.Present > oldPresent:
		// present moved without a new lecture being recorded
		return Unknown
	case cur.Total > oldTotal && cur.Present > oldPresent:
		return Present
	case cur.Total > oldTotal && cur.Present == oldPresent:
		return Absent
	default:
		return Unknown
	}
}
