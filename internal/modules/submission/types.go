package submission

import (
	"errors"
	"time"
)

type CreateDTO struct {
	SurveyID    string                 `json:"survey_id" binding:"required"`
	BadgeID     string                 `json:"badge_id"`
	Answers     map[string]interface{} `json:"answers"   binding:"required"`
	Latitude    *float64               `json:"latitude"  binding:"omitempty,min=-90,max=90"`
	Longitude   *float64               `json:"longitude" binding:"omitempty,min=-180,max=180"`
	SubmittedAt *time.Time             `json:"submitted_at"`
}

type ListQuery struct {
	SurveyID string `form:"survey_id"`
	BadgeID  string `form:"badge_id"`
}

type surveyStats struct {
	SurveyID    string     `json:"survey_id"`
	Submissions int64      `json:"submissions"`
	Badges      int64      `json:"badges"`
	LastAt      *time.Time `json:"last_at"`
}

var (
	ErrSurveyNotActive  = errors.New("survey is not accepting submissions")
	ErrBadgeNotActive   = errors.New("badge is not active")
	ErrMissingAnswer    = errors.New("required question not answered")
	ErrUnknownSurvey    = errors.New("survey not found")
	ErrUnknownBadge     = errors.New("badge not found")
	ErrPartialGeotag    = errors.New("geotag requires both latitude and longitude")
)
