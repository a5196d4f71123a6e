package models

import "time"

// BadgeStatus is the lifecycle state of a surveyor badge.
type BadgeStatus string

const (
	BadgeActive    BadgeStatus = "active"
	BadgeSuspended BadgeStatus = "suspended"
	BadgeExpired   BadgeStatus = "expired"
)

// SurveyorBadgeModel is a credential record identifying one field surveyor.
// LastLat/LastLng/LastLocationAt cache the most recent location sample; the
// location_samples table remains the source of truth. The three cache columns
// are set together or not at all.
type SurveyorBadgeModel struct {
	Base
	OwnerID        string      `json:"owner_id"         gorm:"uniqueIndex:owner_surveyor;not null"`
	SurveyorID     string      `json:"surveyor_id"      gorm:"uniqueIndex:owner_surveyor;not null"`
	Name           string      `json:"name"`
	Status         BadgeStatus `json:"status"           gorm:"index;default:'active'"`
	Credential     string      `json:"credential"       gorm:"uniqueIndex;not null"` // QR/barcode payload
	LastLat        *float64    `json:"last_lat"`
	LastLng        *float64    `json:"last_lng"`
	LastLocationAt *time.Time  `json:"last_location_at"`
	FormsSubmitted int64       `json:"forms_submitted"  gorm:"not null;default:0"`
}

func (SurveyorBadgeModel) TableName() string { return "surveyor_badges" }
