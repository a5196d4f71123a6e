package location

import (
	"context"
	"sync"
	"time"

	"github.com/aquabrain57/procollekt/internal/models"
	"github.com/aquabrain57/procollekt/internal/modules/gateway"
	"go.uber.org/zap"
)

// Tracker manages active location capture for one badge: it owns the
// geolocation watch handle for its lifetime, performs the per-sample durable
// writes, and keeps a bounded in-memory window of recent samples.
//
// States: Idle (no watch) and Tracking (watch held). Start on a source
// without capability logs and stays Idle; Stop when Idle is a no-op; a
// terminal watch error drops back to Idle and releases the handle.
type Tracker struct {
	badgeID    string
	surveyorID string

	store        Store
	source       Source
	hub          *gateway.Hub
	logger       *zap.Logger
	historyLimit int
	watchOpts    WatchOptions

	mu          sync.Mutex
	tracking    bool
	starting    bool
	current     *Position
	lastUpdate  *time.Time
	history     []models.LocationSampleModel
	cancelWatch func()
	watchGen    int

	cancelFeed func()
	stopFeed   chan struct{}
	closeOnce  sync.Once
}

func NewTracker(store Store, source Source, hub *gateway.Hub, logger *zap.Logger, badgeID, surveyorID string, historyLimit int, watchOpts WatchOptions) *Tracker {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Tracker{
		badgeID:      badgeID,
		surveyorID:   surveyorID,
		store:        store,
		source:       source,
		hub:          hub,
		logger:       logger,
		historyLimit: historyLimit,
		watchOpts:    watchOpts,
		stopFeed:     make(chan struct{}),
	}
}

// Mount subscribes to the badge's change feed so samples written by other
// devices tracking the same badge show up in the history.
func (t *Tracker) Mount(ctx context.Context) {
	if t.hub == nil {
		return
	}
	ch, cancel := t.hub.SubscribeRoom(gateway.BadgeRoom(t.badgeID))
	t.cancelFeed = cancel
	go t.feedLoop(ch)
}

// Close stops tracking and releases the change feed subscription.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		t.StopTracking()
		close(t.stopFeed)
		if t.cancelFeed != nil {
			t.cancelFeed()
		}
	})
}

// StartTracking opens a continuous position watch. Failure to start is
// logged, never surfaced: the state simply stays Idle.
func (t *Tracker) StartTracking(ctx context.Context) {
	// The starting flag spans the Watch call itself: a concurrent Start
	// while one acquisition is in flight must not open a second watch,
	// the handle would leak when it gets overwritten.
	t.mu.Lock()
	if t.tracking || t.starting {
		t.mu.Unlock()
		return
	}
	t.starting = true
	t.mu.Unlock()

	if t.source == nil {
		t.logWarn("geolocation source missing", nil)
		t.clearStarting()
		return
	}

	posCh, errCh, release, err := t.source.Watch(ctx, t.watchOpts)
	if err != nil {
		t.logWarn("geolocation watch unavailable", err)
		t.clearStarting()
		return
	}

	t.mu.Lock()
	t.starting = false
	t.tracking = true
	t.cancelWatch = release
	t.watchGen++
	gen := t.watchGen
	t.mu.Unlock()

	go t.watchLoop(ctx, gen, posCh, errCh)
}

func (t *Tracker) clearStarting() {
	t.mu.Lock()
	t.starting = false
	t.mu.Unlock()
}

// StopTracking cancels the watch and returns to Idle. No-op when already
// Idle.
func (t *Tracker) StopTracking() {
	t.mu.Lock()
	release := t.cancelWatch
	t.tracking = false
	t.cancelWatch = nil
	t.mu.Unlock()

	if release != nil {
		release()
	}
}

// Tracking reports whether a watch is currently held.
func (t *Tracker) Tracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

// FetchLocations reads the recent history from the store. Idempotent; a
// failed read is logged and leaves the previous state untouched.
func (t *Tracker) FetchLocations(ctx context.Context) {
	samples, err := t.store.RecentSamples(ctx, t.badgeID, t.historyLimit)
	if err != nil {
		t.logWarn("fetch locations failed", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = samples
	if len(samples) > 0 {
		latest := samples[0]
		t.current = &Position{
			Latitude:   latest.Latitude,
			Longitude:  latest.Longitude,
			RecordedAt: latest.RecordedAt,
		}
		at := latest.RecordedAt
		t.lastUpdate = &at
	}
}

// Snapshot returns the current reactive state for presentation.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		BadgeID:     t.badgeID,
		Tracking:    t.tracking,
		SampleCount: len(t.history),
		History:     make([]sampleRow, 0, len(t.history)),
	}
	if t.current != nil {
		pos := *t.current
		snap.Current = &pos
		snap.CurrentText = formatCoords(pos.Latitude, pos.Longitude, 6)
	}
	if t.lastUpdate != nil {
		at := *t.lastUpdate
		snap.LastUpdate = &at
	}
	for _, s := range t.history {
		snap.History = append(snap.History, toSampleRow(s))
	}
	return snap
}

func (t *Tracker) watchLoop(ctx context.Context, gen int, posCh <-chan Position, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			t.stopIfCurrent(gen)
			return
		case <-t.stopFeed:
			return
		case err, ok := <-errCh:
			if !ok {
				return
			}
			// Terminal watch error: back to Idle, handle released.
			t.logWarn("geolocation watch error", err)
			t.stopIfCurrent(gen)
			return
		case pos, ok := <-posCh:
			if !ok {
				return
			}
			if !t.acceptingFor(gen) {
				return
			}
			t.handleSample(ctx, pos)
		}
	}
}

// handleSample applies the optimistic local update first, then performs the
// two independent durable writes. Write failures never roll the local state
// back: the displayed position always reflects the latest device reading.
func (t *Tracker) handleSample(ctx context.Context, pos Position) {
	if pos.RecordedAt.IsZero() {
		pos.RecordedAt = time.Now()
	}

	t.mu.Lock()
	p := pos
	t.current = &p
	at := pos.RecordedAt
	t.lastUpdate = &at
	t.mu.Unlock()

	sample, err := t.store.InsertSample(ctx, t.badgeID, t.surveyorID, pos)
	if err != nil {
		t.logWarn("sample insert failed", err)
	} else if sample != nil {
		t.prependSample(*sample)
	}
	if err := t.store.UpdateBadgeLocation(ctx, t.badgeID, pos); err != nil {
		t.logWarn("badge cache update failed", err)
	}
}

func (t *Tracker) feedLoop(ch <-chan gateway.Message) {
	for {
		select {
		case <-t.stopFeed:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Event != gateway.EventLocationInserted {
				continue
			}
			if sample, ok := sampleOf(msg.Payload); ok {
				t.prependSample(sample)
			}
		}
	}
}

// prependSample adds a sample to the front of the bounded history window.
// Entries past the cap fall off the view only; the store keeps everything.
// Samples already present (our own change feed echo) are skipped.
func (t *Tracker) prependSample(sample models.LocationSampleModel) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sample.ID != "" {
		for _, existing := range t.history {
			if existing.ID == sample.ID {
				return
			}
		}
	}

	t.history = append([]models.LocationSampleModel{sample}, t.history...)
	if len(t.history) > t.historyLimit {
		t.history = t.history[:t.historyLimit]
	}
}

func (t *Tracker) acceptingFor(gen int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking && t.watchGen == gen
}

// stopIfCurrent clears the tracking flag and releases the handle, but only
// when the given watch generation is still the active one.
func (t *Tracker) stopIfCurrent(gen int) {
	t.mu.Lock()
	if t.watchGen != gen {
		t.mu.Unlock()
		return
	}
	release := t.cancelWatch
	t.tracking = false
	t.cancelWatch = nil
	t.mu.Unlock()

	if release != nil {
		release()
	}
}

func (t *Tracker) logWarn(msg string, err error) {
	if t.logger == nil {
		return
	}
	fields := []zap.Field{zap.String("badge_id", t.badgeID)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	t.logger.Warn(msg, fields...)
}

func sampleOf(payload interface{}) (models.LocationSampleModel, bool) {
	switch p := payload.(type) {
	case models.LocationSampleModel:
		return p, true
	case *models.LocationSampleModel:
		return *p, true
	case map[string]interface{}:
		sample := models.LocationSampleModel{}
		sample.ID, _ = p["id"].(string)
		sample.BadgeID, _ = p["badge_id"].(string)
		sample.SurveyorID, _ = p["surveyor_id"].(string)
		sample.Latitude, _ = p["latitude"].(float64)
		sample.Longitude, _ = p["longitude"].(float64)
		if raw, _ := p["recorded_at"].(string); raw != "" {
			if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				sample.RecordedAt = ts
			}
		}
		if sample.BadgeID == "" {
			return models.LocationSampleModel{}, false
		}
		return sample, true
	}
	return models.LocationSampleModel{}, false
}
