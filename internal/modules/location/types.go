package location

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aquabrain57/procollekt/internal/models"
)

// ErrNoCapability is returned by a Source that cannot provide positions at
// all (no receiver hardware, no permission to ever ask).
var ErrNoCapability = errors.New("geolocation capability unavailable")

// Position is one device location reading.
type Position struct {
	Latitude   float64
	Longitude  float64
	RecordedAt time.Time
}

// WatchOptions configure a continuous position watch.
type WatchOptions struct {
	HighAccuracy bool
	// Timeout bounds the initial position acquisition.
	Timeout time.Duration
	// MaximumAge is the oldest cached fix the watch will accept.
	MaximumAge time.Duration
}

// Source abstracts the host geolocation service. Watch returns a position
// stream, an error stream for terminal watch failures (permission revoked,
// receiver gone) and a release function. The caller owns the release
// function for the lifetime of the watch.
type Source interface {
	Watch(ctx context.Context, opts WatchOptions) (<-chan Position, <-chan error, func(), error)
}

// Store is the persistence surface the tracker writes through. Implemented
// by Service; tests substitute failing stores.
type Store interface {
	InsertSample(ctx context.Context, badgeID, surveyorID string, pos Position) (*models.LocationSampleModel, error)
	UpdateBadgeLocation(ctx context.Context, badgeID string, pos Position) error
	RecentSamples(ctx context.Context, badgeID string, limit int) ([]models.LocationSampleModel, error)
}

// IngestDTO is the payload for device-written samples.
type IngestDTO struct {
	BadgeID    string     `json:"badge_id"`
	Latitude   float64    `json:"latitude"   binding:"min=-90,max=90"`
	Longitude  float64    `json:"longitude"  binding:"min=-180,max=180"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// sampleRow is the display projection of one history entry. History rows are
// shown at 4 decimal places; the raw values keep full precision.
type sampleRow struct {
	ID         string    `json:"id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Display    string    `json:"display"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Snapshot is the tracker's reactive state exposed to the UI: current
// position (6 decimal places), last update, bounded history and counters.
type Snapshot struct {
	BadgeID     string      `json:"badge_id"`
	Tracking    bool        `json:"tracking"`
	Current     *Position   `json:"-"`
	CurrentText string      `json:"current,omitempty"`
	LastUpdate  *time.Time  `json:"last_update"`
	History     []sampleRow `json:"history"`
	SampleCount int         `json:"sample_count"`
}

func toSampleRow(s models.LocationSampleModel) sampleRow {
	return sampleRow{
		ID:         s.ID,
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
		Display:    formatCoords(s.Latitude, s.Longitude, 4),
		RecordedAt: s.RecordedAt,
	}
}

func formatCoords(lat, lng float64, prec int) string {
	return strconv.FormatFloat(lat, 'f', prec, 64) + ", " + strconv.FormatFloat(lng, 'f', prec, 64)
}
