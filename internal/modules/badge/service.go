package badge

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/aquabrain57/procollekt/internal/models"
	"github.com/aquabrain57/procollekt/internal/pkg/pagination"
	"github.com/aquabrain57/procollekt/internal/pkg/response"
	"gorm.io/gorm"
)

var ErrDuplicateSurveyor = errors.New("surveyor already has a badge")

// Service handles badge issuance and lifecycle.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Issue creates a badge for a surveyor under the given owner. One badge per
// owner and surveyor pair; the credential doubles as the QR payload printed
// on the physical badge.
func (s *Service) Issue(ownerID string, dto *IssueDTO) (*models.SurveyorBadgeModel, error) {
	var count int64
	s.db.Model(&models.SurveyorBadgeModel{}).
		Where("owner_id = ? AND surveyor_id = ?", ownerID, dto.SurveyorID).
		Count(&count)
	if count > 0 {
		return nil, ErrDuplicateSurveyor
	}

	credential, err := newCredential()
	if err != nil {
		return nil, err
	}

	badge := models.SurveyorBadgeModel{
		OwnerID:    ownerID,
		SurveyorID: dto.SurveyorID,
		Name:       dto.Name,
		Status:     models.BadgeActive,
		Credential: credential,
	}
	return &badge, s.db.Create(&badge).Error
}

// List returns a paginated list of the owner's badges.
func (s *Service) List(ownerID string, q pagination.Query, lq ListQuery) ([]models.SurveyorBadgeModel, response.Pagination, error) {
	tx := s.db.Model(&models.SurveyorBadgeModel{}).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC")
	if lq.Status != nil {
		tx = tx.Where("status = ?", *lq.Status)
	}

	var badges []models.SurveyorBadgeModel
	pag, err := pagination.Paginate(tx, q, &badges)
	return badges, pag, err
}

// GetByID fetches one badge.
func (s *Service) GetByID(id string) (*models.SurveyorBadgeModel, error) {
	var badge models.SurveyorBadgeModel
	if err := s.db.First(&badge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &badge, nil
}

// GetByCredential resolves a scanned QR payload to its badge. Only active
// badges resolve.
func (s *Service) GetByCredential(credential string) (*models.SurveyorBadgeModel, error) {
	var badge models.SurveyorBadgeModel
	err := s.db.
		Where("credential = ? AND status = ?", credential, models.BadgeActive).
		First(&badge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &badge, nil
}

// Update applies partial edits to name and status.
func (s *Service) Update(id string, dto *UpdateDTO) error {
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Status != nil {
		updates["status"] = *dto.Status
	}
	if len(updates) == 0 {
		return nil
	}
	result := s.db.Model(&models.SurveyorBadgeModel{}).Where("id = ?", id).Updates(updates)
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return result.Error
}

// Rotate replaces the badge credential, invalidating the printed QR code.
func (s *Service) Rotate(id string) (*models.SurveyorBadgeModel, error) {
	credential, err := newCredential()
	if err != nil {
		return nil, err
	}
	result := s.db.Model(&models.SurveyorBadgeModel{}).Where("id = ?", id).
		Update("credential", credential)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return s.GetByID(id)
}

// Delete soft-deletes a badge.
func (s *Service) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.SurveyorBadgeModel{})
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return result.Error
}

// ReconcileLocationCaches re-derives every badge's cached location from the
// latest sample. Run by the scheduler to repair caches missed by a failed
// write.
func (s *Service) ReconcileLocationCaches() (int64, error) {
	var badges []models.SurveyorBadgeModel
	if err := s.db.Select("id, last_location_at").Find(&badges).Error; err != nil {
		return 0, err
	}

	var repaired int64
	for _, b := range badges {
		var latest models.LocationSampleModel
		err := s.db.Where("badge_id = ?", b.ID).
			Order("recorded_at DESC").First(&latest).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return repaired, err
		}
		if b.LastLocationAt != nil && !latest.RecordedAt.After(*b.LastLocationAt) {
			continue
		}
		err = s.db.Model(&models.SurveyorBadgeModel{}).Where("id = ?", b.ID).
			Updates(map[string]interface{}{
				"last_lat":         latest.Latitude,
				"last_lng":         latest.Longitude,
				"last_location_at": latest.RecordedAt,
			}).Error
		if err != nil {
			return repaired, err
		}
		repaired++
	}
	return repaired, nil
}

// ExpireStale marks badges with no activity past the cutoff as expired.
func (s *Service) ExpireStale(cutoff time.Duration) (int64, error) {
	result := s.db.Model(&models.SurveyorBadgeModel{}).
		Where("status = ? AND last_location_at IS NOT NULL AND last_location_at < ?",
			models.BadgeActive, time.Now().Add(-cutoff)).
		Update("status", models.BadgeExpired)
	return result.RowsAffected, result.Error
}

func newCredential() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("pkb_%s", hex.EncodeToString(b)), nil
}
