package submission

import (
	"errors"
	"fmt"
	"time"

	"github.com/aquabrain57/procollekt/internal/models"
	"github.com/aquabrain57/procollekt/internal/modules/gateway"
	"github.com/aquabrain57/procollekt/internal/pkg/pagination"
	"github.com/aquabrain57/procollekt/internal/pkg/response"
	"gorm.io/gorm"
)

// Service handles collected survey responses.
type Service struct {
	db  *gorm.DB
	hub *gateway.Hub
}

func NewService(db *gorm.DB, hub *gateway.Hub) *Service {
	return &Service{db: db, hub: hub}
}

// Create validates and stores one submission, bumps the badge's submission
// counter in the same transaction, and announces it to connected admins.
func (s *Service) Create(dto *CreateDTO) (*models.SubmissionModel, error) {
	if (dto.Latitude == nil) != (dto.Longitude == nil) {
		return nil, ErrPartialGeotag
	}

	var survey models.SurveyModel
	if err := s.db.Preload("Questions").First(&survey, "id = ?", dto.SurveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownSurvey
		}
		return nil, err
	}
	if survey.Status != models.SurveyActive {
		return nil, ErrSurveyNotActive
	}

	var badge models.SurveyorBadgeModel
	if err := s.db.First(&badge, "id = ?", dto.BadgeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownBadge
		}
		return nil, err
	}
	if badge.Status != models.BadgeActive {
		return nil, ErrBadgeNotActive
	}

	for _, q := range survey.Questions {
		if !q.Required {
			continue
		}
		if _, ok := dto.Answers[q.ID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingAnswer, q.Label)
		}
	}

	submittedAt := time.Now()
	if dto.SubmittedAt != nil {
		submittedAt = *dto.SubmittedAt
	}
	sub := models.SubmissionModel{
		SurveyID:    dto.SurveyID,
		BadgeID:     dto.BadgeID,
		Answers:     dto.Answers,
		Latitude:    dto.Latitude,
		Longitude:   dto.Longitude,
		SubmittedAt: submittedAt,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}
		return tx.Model(&models.SurveyorBadgeModel{}).
			Where("id = ?", badge.ID).
			UpdateColumn("forms_submitted", gorm.Expr("forms_submitted + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastAdmin(gateway.EventSubmissionNew, sub)
	}
	return &sub, nil
}

// List returns a paginated, newest-first list of submissions.
func (s *Service) List(q pagination.Query, lq ListQuery) ([]models.SubmissionModel, response.Pagination, error) {
	tx := s.db.Model(&models.SubmissionModel{}).Order("submitted_at DESC")
	if lq.SurveyID != "" {
		tx = tx.Where("survey_id = ?", lq.SurveyID)
	}
	if lq.BadgeID != "" {
		tx = tx.Where("badge_id = ?", lq.BadgeID)
	}

	var subs []models.SubmissionModel
	pag, err := pagination.Paginate(tx, q, &subs)
	return subs, pag, err
}

// GetByID fetches one submission.
func (s *Service) GetByID(id string) (*models.SubmissionModel, error) {
	var sub models.SubmissionModel
	if err := s.db.First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// StatsForSurvey summarizes collection progress for one survey.
func (s *Service) StatsForSurvey(surveyID string) (*surveyStats, error) {
	stats := surveyStats{SurveyID: surveyID}

	base := s.db.Model(&models.SubmissionModel{}).Where("survey_id = ?", surveyID)
	if err := base.Session(&gorm.Session{}).Count(&stats.Submissions).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).
		Distinct("badge_id").Count(&stats.Badges).Error; err != nil {
		return nil, err
	}

	var latest models.SubmissionModel
	err := s.db.Where("survey_id = ?", surveyID).
		Order("submitted_at DESC").First(&latest).Error
	if err == nil {
		stats.LastAt = &latest.SubmittedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &stats, nil
}
