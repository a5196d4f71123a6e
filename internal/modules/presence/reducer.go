package presence

import (
	"fmt"
	"time"
)

// Reduce folds one event into the derived state. The three signal sources
// carry no ordering guarantee relative to each other; each case only
// overwrites the fields its source is allowed to speak for:
//
//   - presence feed events own the member count and set online from it,
//   - change feed inserts force online and refresh last-seen,
//   - the freshness check may force online but never forces offline.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case PresenceSync:
		s.PresenceCount = e.Count
		s.IsOnline = e.Count > 0

	case PresenceJoin:
		s.PresenceCount = e.Count
		s.IsOnline = true
		at := e.At
		s.LastSeen = &at

	case PresenceLeave:
		s.PresenceCount = e.Count
		s.IsOnline = e.Count > 0
		at := e.At
		s.LastSeen = &at

	case SampleInserted:
		s.IsOnline = true
		at := e.RecordedAt
		s.LastSeen = &at

	case FreshnessChecked:
		if e.RecordedAt == nil {
			break
		}
		at := *e.RecordedAt
		s.LastSeen = &at
		if e.Now.Sub(at) <= e.Window {
			s.IsOnline = true
		}
	}
	return s
}

// HumanizeSince renders a relative "last seen" duration.
func HumanizeSince(t time.Time, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
