// internal/attendance/types.go
package attendance

// CourseCounter is the pair of lecture counters the portal reports per course.
// Present <= Total is expected but not enforced.
type CourseCounter struct {
	Present int `json:"present"`
	Total   int `json:"total"`
}

// Snapshot maps course code to its last observed counters.
type Snapshot map[string]CourseCounter

// Clone returns an independent copy. A nil snapshot clones to an empty one.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Lookup returns the counter for code, or nil when the course is new.
func (s Snapshot) Lookup(code string) *CourseCounter {
	c, ok := s[code]
	if !ok {
		return nil
	}
	return &c
}

// EventKind classifies a counter delta.
type EventKind int

const (
	NoChange EventKind = iota
	Present
	Absent
	Unknown
)

func (k EventKind) String() string {
	switch k {
	case NoChange:
		return "NoChange"
	case Present:
		return "Present"
	case Absent:
		return "Absent"
	case Unknown:
		return "Unknown"
	default:
		return "EventKind(?)"
	}
}

// MarshalText lets EventKind render by name in JSON and logs.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is one notifiable change for one course.
type Event struct {
	CourseCode string        `json:"course_code"`
	CourseName string        `json:"course_name"`
	Kind       EventKind     `json:"kind"`
	Counter    CourseCounter `json:"counter"`
	Advisory   Advisory      `json:"advisory"`
}
