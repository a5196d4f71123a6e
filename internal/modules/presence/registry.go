package presence

import (
	"context"
	"sync"
	"time"

	"github.com/aquabrain57/procollekt/internal/modules/gateway"
	"go.uber.org/zap"
)

// Registry keeps one live Monitor per watched badge so the derived online
// view stays warm between status requests. Monitors are created on first
// demand and live until shutdown, the same way trackers are managed.
type Registry struct {
	ctx    context.Context
	svc    *Service
	hub    *gateway.Hub
	logger *zap.Logger

	mu       sync.Mutex
	monitors map[string]*Monitor
	closed   bool
}

func NewRegistry(ctx context.Context, svc *Service, hub *gateway.Hub, logger *zap.Logger) *Registry {
	return &Registry{
		ctx:      ctx,
		svc:      svc,
		hub:      hub,
		logger:   logger,
		monitors: make(map[string]*Monitor),
	}
}

// Monitor returns the live monitor for a badge, creating and starting it on
// first use. seedLastSeen initializes the view before any live signal
// arrives, in practice the badge's cached last_location_at. Returns nil
// after Close or when no hub is wired.
func (r *Registry) Monitor(badgeID, surveyorID string, seedLastSeen *time.Time) *Monitor {
	if r.hub == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	if m, ok := r.monitors[badgeID]; ok {
		return m
	}
	m := NewMonitor(r.svc, r.hub, r.logger, badgeID, surveyorID, seedLastSeen)
	m.Start(r.ctx)
	r.monitors[badgeID] = m
	return m
}

// Close releases every monitor. Safe to call more than once.
func (r *Registry) Close() {
	r.mu.Lock()
	monitors := r.monitors
	r.monitors = make(map[string]*Monitor)
	r.closed = true
	r.mu.Unlock()

	for _, m := range monitors {
		m.Close()
	}
}
