package timing

import (
	"fmt"
	"strings"
)

// Classification is the attendance verdict for one punch. CheckIn and
// CheckOut are the window's configured times, not the punch time; at
// most one of them is set, depending on the window kind.
type Classification struct {
	AttendanceType int
	Authorized     bool
	CheckIn        *TimeOfDay
	CheckOut       *TimeOfDay
	Remark         string
}

// Classify turns a match (or its absence) into an attendance verdict.
// defaultType is the population's "present" code, used when the window
// carries no target type and for unauthorized punches: a punch outside
// every known window still means the subject showed up, it just cannot
// be attributed to a schedule. Pure function, no I/O.
func Classify(m *Match, punch TimeOfDay, defaultType int) Classification {
	if defaultType == 0 {
		defaultType = TypePresent
	}

	if m == nil {
		return Classification{
			AttendanceType: defaultType,
			Authorized:     false,
			Remark:         fmt.Sprintf("Unauthorized time punch at %s", punch),
		}
	}

	w := m.Window
	c := Classification{
		AttendanceType: w.AttendanceType,
		Authorized:     true,
	}
	if c.AttendanceType == 0 {
		c.AttendanceType = defaultType
	}

	switch w.Kind {
	case KindCheckIn:
		t := w.Start
		c.CheckIn = &t
	case KindCheckOut:
		t := w.End
		c.CheckOut = &t
	}

	remark := fmt.Sprintf("%s - %s at %s", titleKind(w.Kind), w.Name, punch)
	if m.Late && m.MinutesLate > 0 {
		remark += fmt.Sprintf(" (Late by %d minutes)", m.MinutesLate)
	}
	c.Remark = remark
	return c
}

func titleKind(k WindowKind) string {
	s := string(k)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
