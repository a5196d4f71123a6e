package models

import "time"

// SubmissionModel is one collected survey response from a badge holder.
// Answers are keyed by question id. The optional geotag records where the
// form was filled in.
type SubmissionModel struct {
	Base
	SurveyID    string                 `json:"survey_id"    gorm:"index;not null"`
	BadgeID     string                 `json:"badge_id"     gorm:"index;not null"`
	Answers     map[string]interface{} `json:"answers"      gorm:"type:longtext;serializer:json"`
	Latitude    *float64               `json:"latitude"`
	Longitude   *float64               `json:"longitude"`
	SubmittedAt time.Time              `json:"submitted_at" gorm:"index;not null"`
}

func (SubmissionModel) TableName() string { return "submissions" }
