package presence

import (
	"errors"
	"time"

	"github.com/aquabrain57/procollekt/internal/models"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	window time.Duration
}

func NewService(db *gorm.DB, freshnessWindow time.Duration) *Service {
	return &Service{db: db, window: freshnessWindow}
}

// Window returns the configured online-freshness window.
func (s *Service) Window() time.Duration { return s.window }

// LatestSample returns the most recent location sample for a badge, or nil
// when the store has none.
func (s *Service) LatestSample(badgeID string) (*models.LocationSampleModel, error) {
	var sample models.LocationSampleModel
	err := s.db.
		Where("badge_id = ?", badgeID).
		Order("recorded_at DESC").
		First(&sample).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sample, nil
}

// StatusFor derives the presence view for a badge at request time. The seed
// comes from the badge's cached last_location_at; the freshness check and the
// current feed membership are folded through the reducer in that order, so
// the result matches what a live monitor would report.
func (s *Service) StatusFor(badge *models.SurveyorBadgeModel, memberCount int) StatusDTO {
	now := time.Now()

	state := State{LastSeen: badge.LastLocationAt}
	state = Reduce(state, PresenceSync{Count: memberCount, At: now})

	var recordedAt *time.Time
	if sample, err := s.LatestSample(badge.ID); err == nil && sample != nil {
		recordedAt = &sample.RecordedAt
	}
	state = Reduce(state, FreshnessChecked{RecordedAt: recordedAt, Now: now, Window: s.window})

	return s.viewOf(badge, state, now)
}

// viewOf projects a derived state into the HTTP status shape.
func (s *Service) viewOf(badge *models.SurveyorBadgeModel, state State, now time.Time) StatusDTO {
	dto := StatusDTO{
		BadgeID:       badge.ID,
		SurveyorID:    badge.SurveyorID,
		IsOnline:      state.IsOnline,
		LastSeen:      state.LastSeen,
		PresenceCount: state.PresenceCount,
	}
	if state.LastSeen != nil {
		dto.LastSeenText = HumanizeSince(*state.LastSeen, now)
	}
	return dto
}
