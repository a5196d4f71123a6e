package badge

import (
	"time"

	"github.com/aquabrain57/procollekt/internal/models"
)

type IssueDTO struct {
	SurveyorID string `json:"surveyor_id" binding:"required"`
	Name       string `json:"name"`
}

type UpdateDTO struct {
	Name   *string             `json:"name"`
	Status *models.BadgeStatus `json:"status" binding:"omitempty,oneof=active suspended expired"`
}

type ListQuery struct {
	Status *models.BadgeStatus `form:"status" binding:"omitempty,oneof=active suspended expired"`
}

// badgeView is the list/detail projection: the badge row plus the cached
// last-location summary.
type badgeView struct {
	models.SurveyorBadgeModel
	LastLocation *lastLocation `json:"last_location"`
}

type lastLocation struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	At        time.Time `json:"at"`
}

func toView(b models.SurveyorBadgeModel) badgeView {
	v := badgeView{SurveyorBadgeModel: b}
	if b.LastLat != nil && b.LastLng != nil && b.LastLocationAt != nil {
		v.LastLocation = &lastLocation{
			Latitude:  *b.LastLat,
			Longitude: *b.LastLng,
			At:        *b.LastLocationAt,
		}
	}
	return v
}
