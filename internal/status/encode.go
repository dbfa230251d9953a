// internal/status/encode.go
package status

// Encode converts the live part of a Snapshot into a status block.
// Label slots are left zero. No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerInstance)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotCoursesTracked] = s.CoursesTracked
	regs[SlotEventsLastCycle] = s.EventsLastCycle

	return regs
}

// EncodeLabel packs up to 16 ASCII characters into 8 registers,
// two bytes per register, big-endian. Non-printable bytes become '?'.
func EncodeLabel(label string) []uint16 {
	out := make([]uint16, SlotLabelSlots)

	b := []byte(label)
	if len(b) > LabelMaxChars {
		b = b[:LabelMaxChars]
	}

	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < LabelMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}
