package presence

import (
	"context"
	"sync"
	"time"

	"github.com/aquabrain57/procollekt/internal/models"
	"github.com/aquabrain57/procollekt/internal/modules/gateway"
	"go.uber.org/zap"
)

// Monitor keeps a live derived online view for one (badge, surveyor) pair.
// It owns two feed subscriptions (the surveyor's presence room and the
// badge's change feed room) plus a one-shot freshness read on start, and it
// releases everything on Close.
type Monitor struct {
	badgeID    string
	surveyorID string

	svc    *Service
	hub    *gateway.Hub
	logger *zap.Logger

	mu     sync.Mutex
	state  State
	closed bool

	stop      chan struct{}
	closeOnce sync.Once
	cancels   []func()
}

// NewMonitor creates an inactive monitor. seedLastSeen initializes the
// last-seen value (typically the badge's cached last_location_at) before any
// live signal arrives.
func NewMonitor(svc *Service, hub *gateway.Hub, logger *zap.Logger, badgeID, surveyorID string, seedLastSeen *time.Time) *Monitor {
	m := &Monitor{
		badgeID:    badgeID,
		surveyorID: surveyorID,
		svc:        svc,
		hub:        hub,
		logger:     logger,
		stop:       make(chan struct{}),
	}
	if seedLastSeen != nil {
		at := *seedLastSeen
		m.state.LastSeen = &at
	}
	return m
}

// Start opens the feed subscriptions and kicks off the freshness read.
func (m *Monitor) Start(ctx context.Context) {
	presenceCh, cancelPresence := m.hub.SubscribeRoom(gateway.SurveyorRoom(m.surveyorID))
	changeCh, cancelChange := m.hub.SubscribeRoom(gateway.BadgeRoom(m.badgeID))
	m.cancels = []func(){cancelPresence, cancelChange}

	// Membership that predates activation never reaches the feed: sync
	// snapshots go to the joining socket only. Fold the current count so a
	// surveyor already connected reads online immediately.
	m.apply(PresenceSync{
		Count: m.hub.MemberCount(gateway.SurveyorRoom(m.surveyorID)),
		At:    time.Now(),
	})

	go m.loop(presenceCh, changeCh)
	go m.freshnessCheck(ctx)
}

// State returns the current derived view.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RefreshFreshness re-runs the freshness read synchronously. Status requests
// use it so a long-lived monitor also reflects samples that arrived through
// paths outside the change feed.
func (m *Monitor) RefreshFreshness() {
	m.freshnessCheck(context.Background())
}

// Close releases both subscriptions. Safe to call more than once; no state
// updates happen afterwards.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.stop)
		for _, cancel := range m.cancels {
			cancel()
		}
	})
}

func (m *Monitor) loop(presenceCh, changeCh <-chan gateway.Message) {
	for {
		select {
		case <-m.stop:
			return
		case msg, ok := <-presenceCh:
			if !ok {
				return
			}
			if ev, ok := presenceEventOf(msg); ok {
				m.apply(ev)
			}
		case msg, ok := <-changeCh:
			if !ok {
				return
			}
			if msg.Event != gateway.EventLocationInserted {
				continue
			}
			if recordedAt, ok := sampleRecordedAt(msg.Payload); ok {
				m.apply(SampleInserted{RecordedAt: recordedAt})
			}
		}
	}
}

// freshnessCheck performs the one-shot read of the latest sample. A failed
// read is tolerated: the state stays seeded and the presence feed remains the
// only online signal.
func (m *Monitor) freshnessCheck(ctx context.Context) {
	sample, err := m.svc.LatestSample(m.badgeID)
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("presence freshness read failed",
				zap.String("badge_id", m.badgeID), zap.Error(err))
		}
		return
	}
	var recordedAt *time.Time
	if sample != nil {
		recordedAt = &sample.RecordedAt
	}
	m.apply(FreshnessChecked{RecordedAt: recordedAt, Now: time.Now(), Window: m.svc.Window()})
}

func (m *Monitor) apply(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.state = Reduce(m.state, ev)
}

// presenceEventOf maps a gateway presence message to a reducer event. The
// payload is the original struct for local broadcasts and a decoded map when
// it arrived over Redis fan-out from another instance.
func presenceEventOf(msg gateway.Message) (Event, bool) {
	count, at, ok := presencePayload(msg.Payload)
	if !ok {
		return nil, false
	}
	switch msg.Event {
	case gateway.EventPresenceSync:
		return PresenceSync{Count: count, At: at}, true
	case gateway.EventPresenceJoin:
		return PresenceJoin{Count: count, At: at}, true
	case gateway.EventPresenceLeave:
		return PresenceLeave{Count: count, At: at}, true
	}
	return nil, false
}

func presencePayload(payload interface{}) (int, time.Time, bool) {
	switch p := payload.(type) {
	case gateway.PresenceEvent:
		return p.Count, parseEventTime(p.Timestamp), true
	case *gateway.PresenceEvent:
		return p.Count, parseEventTime(p.Timestamp), true
	case map[string]interface{}:
		count, _ := p["count"].(float64)
		ts, _ := p["timestamp"].(string)
		return int(count), parseEventTime(ts), true
	}
	return 0, time.Time{}, false
}

func sampleRecordedAt(payload interface{}) (time.Time, bool) {
	switch p := payload.(type) {
	case models.LocationSampleModel:
		return p.RecordedAt, true
	case *models.LocationSampleModel:
		return p.RecordedAt, true
	case map[string]interface{}:
		raw, _ := p["recorded_at"].(string)
		if raw == "" {
			return time.Time{}, false
		}
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

func parseEventTime(raw string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	return time.Now()
}
