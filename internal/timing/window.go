package timing

import (
	"fmt"
	"sort"
)

// WindowKind distinguishes check-in windows (which can be late) from
// check-out windows (which cannot).
type WindowKind string

const (
	KindCheckIn  WindowKind = "checkin"
	KindCheckOut WindowKind = "checkout"
)

// Attendance type codes shared by both subject populations.
const (
	TypePresent = 1
	TypeLate    = 2
	TypeAbsent  = 3
	TypeHalfDay = 4
	TypeHoliday = 5
)

// TimeOfDay is a clock time expressed as seconds since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay(h*3600 + m*60 + sec), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(t)/3600, int(t)/60%60, int(t)%60)
}

// Window is one configured authorization window. Windows are configuration
// data owned by administrative tooling; this package only reads them.
type Window struct {
	ID             int64
	Name           string
	Kind           WindowKind
	Start          TimeOfDay
	End            TimeOfDay
	GraceMinutes   int
	AttendanceType int
	Priority       int
}

// Overnight reports whether the window wraps past midnight.
func (w Window) Overnight() bool { return w.Start > w.End }

// Contains reports whether the punch time falls inside the window,
// inclusive at both ends. Overnight windows (start > end) cover
// [start, midnight] plus [midnight, end].
func (w Window) Contains(punch TimeOfDay) bool {
	if w.Overnight() {
		return punch >= w.Start || punch <= w.End
	}
	return punch >= w.Start && punch <= w.End
}

// Match is the outcome of matching a punch against the window set.
type Match struct {
	Window      Window
	Late        bool
	MinutesLate int
}

// MatchWindow returns the first window containing the punch time.
// Candidates are tried in (priority asc, start asc) order: a better
// priority number always wins, even when a later window is a tighter
// fit. When eligible is non-empty only those window ids are candidates;
// an empty set means the subject has no assignments and every window
// is in play.
func MatchWindow(punch TimeOfDay, windows []Window, eligible map[int64]bool) (Match, bool) {
	candidates := make([]Window, 0, len(windows))
	for _, w := range windows {
		if len(eligible) > 0 && !eligible[w.ID] {
			continue
		}
		candidates = append(candidates, w)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].Start < candidates[j].Start
	})

	for _, w := range candidates {
		if !w.Contains(punch) {
			continue
		}
		m := Match{Window: w}
		if w.Kind == KindCheckIn {
			p := punch
			if w.Overnight() && punch <= w.End {
				// Past-midnight side of a wrapping window: measure lateness
				// as a continuation of the previous evening.
				p += 24 * 3600
			}
			graceEnd := w.Start + TimeOfDay(w.GraceMinutes*60)
			if p > graceEnd {
				m.Late = true
				// Round up so any punch past grace is late by at least a minute.
				m.MinutesLate = (int(p-graceEnd) + 59) / 60
			}
		}
		return m, true
	}
	return Match{}, false
}
