package survey

import (
	"errors"
	"fmt"

	"github.com/aquabrain57/procollekt/internal/models"
	"github.com/aquabrain57/procollekt/internal/pkg/pagination"
	"github.com/aquabrain57/procollekt/internal/pkg/response"
	"gorm.io/gorm"
)

// Service handles survey and question business logic.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns a paginated list of the owner's surveys.
func (s *Service) List(ownerID string, q pagination.Query, lq ListQuery) ([]models.SurveyModel, response.Pagination, error) {
	tx := s.db.Model(&models.SurveyModel{}).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC")
	if lq.Status != nil {
		tx = tx.Where("status = ?", *lq.Status)
	}

	var surveys []models.SurveyModel
	pag, err := pagination.Paginate(tx, q, &surveys)
	return surveys, pag, err
}

// GetByID fetches one survey with its questions in form order.
func (s *Service) GetByID(id string) (*models.SurveyModel, error) {
	var survey models.SurveyModel
	err := s.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.sort_order ASC, questions.created_at ASC")
		}).
		First(&survey, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &survey, nil
}

// GetActive returns the survey only when it is open for responses. Fill-in
// clients use this; draft and closed surveys are invisible to them.
func (s *Service) GetActive(id string) (*models.SurveyModel, error) {
	survey, err := s.GetByID(id)
	if err != nil || survey == nil {
		return nil, err
	}
	if survey.Status != models.SurveyActive {
		return nil, nil
	}
	return survey, nil
}

// Create stores a survey and its questions in one transaction.
func (s *Service) Create(ownerID string, dto *CreateDTO) (*models.SurveyModel, error) {
	survey := models.SurveyModel{
		OwnerID:     ownerID,
		Title:       dto.Title,
		Description: dto.Description,
		Status:      models.SurveyDraft,
		Settings:    dto.Settings,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&survey).Error; err != nil {
			return err
		}
		for i, q := range dto.Questions {
			question := models.QuestionModel{
				SurveyID: survey.ID,
				Label:    q.Label,
				Kind:     q.Kind,
				Options:  q.Options,
				Required: q.Required,
				Order:    orderOrIndex(q.Order, i),
			}
			if err := tx.Create(&question).Error; err != nil {
				return err
			}
			survey.Questions = append(survey.Questions, question)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &survey, nil
}

// Update applies partial edits. Questions are managed through their own
// endpoints.
func (s *Service) Update(id string, dto *UpdateDTO) error {
	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if dto.Settings != nil {
		updates["settings"] = *dto.Settings
	}
	if len(updates) == 0 {
		return nil
	}
	result := s.db.Model(&models.SurveyModel{}).Where("id = ?", id).Updates(updates)
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return result.Error
}

// SetStatus moves a survey through its lifecycle. Closed is terminal.
func (s *Service) SetStatus(id string, status models.SurveyStatus) error {
	var survey models.SurveyModel
	if err := s.db.Select("id, status").First(&survey, "id = ?", id).Error; err != nil {
		return err
	}
	if survey.Status == models.SurveyClosed {
		return fmt.Errorf("survey is closed")
	}
	return s.db.Model(&models.SurveyModel{}).Where("id = ?", id).
		Update("status", status).Error
}

// AddQuestion appends one question to a survey.
func (s *Service) AddQuestion(surveyID string, dto *QuestionDTO) (*models.QuestionModel, error) {
	var count int64
	s.db.Model(&models.QuestionModel{}).Where("survey_id = ?", surveyID).Count(&count)

	question := models.QuestionModel{
		SurveyID: surveyID,
		Label:    dto.Label,
		Kind:     dto.Kind,
		Options:  dto.Options,
		Required: dto.Required,
		Order:    orderOrIndex(dto.Order, int(count)),
	}
	return &question, s.db.Create(&question).Error
}

// DeleteQuestion removes one question from a survey.
func (s *Service) DeleteQuestion(surveyID, questionID string) error {
	result := s.db.Where("id = ? AND survey_id = ?", questionID, surveyID).
		Delete(&models.QuestionModel{})
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return result.Error
}

// Delete soft-deletes a survey and its questions.
func (s *Service) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&models.SurveyModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("survey_id = ?", id).Delete(&models.QuestionModel{}).Error
	})
}

func orderOrIndex(order, index int) int {
	if order > 0 {
		return order
	}
	return index
}
