package location

import (
	"context"
	"sync"
	"time"

	"github.com/aquabrain57/procollekt/internal/config"
	"github.com/aquabrain57/procollekt/internal/modules/gateway"
	"go.uber.org/zap"
)

// Manager keeps one Tracker per badge, created on demand. Trackers created
// here use an ingestSource so that samples pushed over HTTP drive the watch
// loop like a native device watch would.
type Manager struct {
	ctx    context.Context
	store  Store
	hub    *gateway.Hub
	logger *zap.Logger
	cfg    config.TrackingConfig

	mu       sync.Mutex
	trackers map[string]*Tracker
	sources  map[string]*ingestSource
}

// NewManager builds a registry bound to the given lifecycle context. Watches
// started through it survive the requests that started them and end with the
// context.
func NewManager(ctx context.Context, store Store, hub *gateway.Hub, logger *zap.Logger, cfg config.TrackingConfig) *Manager {
	return &Manager{
		ctx:      ctx,
		store:    store,
		hub:      hub,
		logger:   logger,
		cfg:      cfg,
		trackers: make(map[string]*Tracker),
		sources:  make(map[string]*ingestSource),
	}
}

// Context returns the manager's lifecycle context.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Tracker returns the tracker for a badge, creating and mounting it on first
// use.
func (m *Manager) Tracker(badgeID, surveyorID string) *Tracker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.trackers[badgeID]; ok {
		return t
	}

	src := newIngestSource()
	t := NewTracker(m.store, src, m.hub, m.logger, badgeID, surveyorID, m.cfg.HistoryLimit, WatchOptions{
		HighAccuracy: true,
		Timeout:      m.cfg.WatchTimeout,
		MaximumAge:   m.cfg.WatchMaximumAge,
	})
	t.Mount(m.ctx)
	m.trackers[badgeID] = t
	m.sources[badgeID] = src
	return t
}

// Push routes an ingested position into the badge's tracker when one is
// watching. Returns false when no tracker accepted it, meaning the caller
// should persist the sample directly.
func (m *Manager) Push(badgeID string, pos Position) bool {
	m.mu.Lock()
	t, okT := m.trackers[badgeID]
	src, okS := m.sources[badgeID]
	m.mu.Unlock()

	if !okT || !okS || !t.Tracking() {
		return false
	}
	return src.push(pos)
}

// Close releases every tracker. Used on shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.trackers {
		t.Close()
		delete(m.trackers, id)
		delete(m.sources, id)
	}
}

// ingestSource adapts pushed positions to the Source watch contract. A watch
// is a registration for subsequent pushes; release de-registers it. Stale
// pushes older than MaximumAge are dropped.
type ingestSource struct {
	mu     sync.Mutex
	posCh  chan Position
	maxAge time.Duration
	active bool
}

func newIngestSource() *ingestSource {
	return &ingestSource{}
}

func (s *ingestSource) Watch(ctx context.Context, opts WatchOptions) (<-chan Position, <-chan error, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posCh := make(chan Position, 16)
	errCh := make(chan error, 1)
	s.posCh = posCh
	s.maxAge = opts.MaximumAge
	s.active = true

	release := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.posCh == posCh {
			s.active = false
			s.posCh = nil
		}
	}
	return posCh, errCh, release, nil
}

func (s *ingestSource) push(pos Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.posCh == nil {
		return false
	}
	if s.maxAge > 0 && !pos.RecordedAt.IsZero() && time.Since(pos.RecordedAt) > s.maxAge {
		return false
	}
	select {
	case s.posCh <- pos:
		return true
	default:
		return false
	}
}
