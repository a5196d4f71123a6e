package models

import "time"

// LocationSampleModel is one geolocation reading tied to a badge. Rows are
// append-only: the application never updates or deletes them, retention is a
// store concern.
type LocationSampleModel struct {
	Base
	BadgeID    string    `json:"badge_id"    gorm:"index;not null"`
	SurveyorID string    `json:"surveyor_id" gorm:"index;not null"`
	Latitude   float64   `json:"latitude"    gorm:"not null"`
	Longitude  float64   `json:"longitude"   gorm:"not null"`
	RecordedAt time.Time `json:"recorded_at" gorm:"index;not null"`
}

func (LocationSampleModel) TableName() string { return "location_samples" }
