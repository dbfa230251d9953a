// internal/status/constants.go
package status

// Status block layout constants.
// These values define the export layout and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerInstance is the fixed number of registers per notifier instance.
const SlotsPerInstance = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the poll health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the code of the last failed cycle.
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) polling has been failing.
const SlotSecondsInError = 2

// SlotCoursesTracked holds the number of courses in the last snapshot.
const SlotCoursesTracked = 3

// SlotEventsLastCycle holds the number of attendance events in the last completed cycle.
const SlotEventsLastCycle = 4

// ---- RESERVED RANGE ----

// Slots 5–10 are reserved for future use.
const SlotReservedStart = 5
const SlotReservedEnd = 10

// ---- LABEL ----

// SlotLabelStart is the first slot used for the instance label.
// The label is always placed at the END of the status block.
const SlotLabelStart = 11

// SlotLabelSlots is the number of slots reserved for the label.
const SlotLabelSlots = 8

// SlotLabelEnd is the last slot used for the label (inclusive).
const SlotLabelEnd = SlotLabelStart + SlotLabelSlots - 1

// ---- LIMITS ----

// LabelMaxChars is the maximum number of ASCII characters stored for the label.
const LabelMaxChars = 16

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state before any cycle ran.
const HealthUnknown uint16 = 0

// HealthOK represents a completed last cycle.
const HealthOK uint16 = 1

// HealthError represents a failed last cycle.
const HealthError uint16 = 2

// HealthWaiting represents a cycle deferred to the next login slot.
const HealthWaiting uint16 = 3

// ---- ERROR CODES ----

const (
	CodeNone           uint16 = 0
	CodeAuthFailure    uint16 = 1
	CodeRateLimited    uint16 = 2
	CodeFetch          uint16 = 3
	CodeSessionExpired uint16 = 4
	CodeNotify         uint16 = 5
	CodePersistence    uint16 = 6
	CodeOther          uint16 = 99
)
