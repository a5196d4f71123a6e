package presence

import "time"

// State is the derived online view for one (badge, surveyor) pair. It is a
// projection with no stored identity: every event recomputes it.
type State struct {
	IsOnline      bool       `json:"is_online"`
	LastSeen      *time.Time `json:"last_seen"`
	PresenceCount int        `json:"presence_count"`
}

// Event is one observation from any of the three independent signal sources:
// the presence feed, the change feed and the one-shot freshness read. Events
// are folded in arrival order; overlapping fields resolve last-writer-wins.
type Event interface {
	isPresenceEvent()
}

// PresenceSync is a full membership snapshot from the presence feed.
type PresenceSync struct {
	Count int
	At    time.Time
}

// PresenceJoin reports a new member on the presence feed.
type PresenceJoin struct {
	Count int
	At    time.Time
}

// PresenceLeave reports a departed member. Leaving counts as a last-seen
// observation even when the room empties.
type PresenceLeave struct {
	Count int
	At    time.Time
}

// SampleInserted reports a new row in the location store for the badge.
type SampleInserted struct {
	RecordedAt time.Time
}

// FreshnessChecked carries the result of the one-shot read of the most recent
// location sample. RecordedAt is nil when the store had no rows (or the read
// failed); that case changes nothing.
type FreshnessChecked struct {
	RecordedAt *time.Time
	Now        time.Time
	Window     time.Duration
}

func (PresenceSync) isPresenceEvent()     {}
func (PresenceJoin) isPresenceEvent()     {}
func (PresenceLeave) isPresenceEvent()    {}
func (SampleInserted) isPresenceEvent()   {}
func (FreshnessChecked) isPresenceEvent() {}

// StatusDTO is the HTTP projection of State, with a readable relative
// last-seen string for the expanded view.
type StatusDTO struct {
	BadgeID       string     `json:"badge_id"`
	SurveyorID    string     `json:"surveyor_id"`
	IsOnline      bool       `json:"is_online"`
	LastSeen      *time.Time `json:"last_seen"`
	LastSeenText  string     `json:"last_seen_text,omitempty"`
	PresenceCount int        `json:"presence_count"`
}
