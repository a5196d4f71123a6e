package location

import (
	"context"
	"errors"
	"time"

	"github.com/aquabrain57/procollekt/internal/models"
	"github.com/aquabrain57/procollekt/internal/modules/gateway"
	"github.com/aquabrain57/procollekt/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const taskTypeWriteFailure = "location_write_failure"

// Service persists location samples and the badge location cache, and fans
// inserted samples out on the badge's change feed.
type Service struct {
	db     *gorm.DB
	hub    *gateway.Hub
	tasks  *taskqueue.Service
	logger *zap.Logger
}

func NewService(db *gorm.DB, hub *gateway.Hub, tasks *taskqueue.Service, logger *zap.Logger) *Service {
	return &Service{db: db, hub: hub, tasks: tasks, logger: logger}
}

// InsertSample appends one row to the location store and broadcasts it on the
// badge's change feed. Samples are append-only.
func (s *Service) InsertSample(ctx context.Context, badgeID, surveyorID string, pos Position) (*models.LocationSampleModel, error) {
	recordedAt := pos.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	sample := models.LocationSampleModel{
		BadgeID:    badgeID,
		SurveyorID: surveyorID,
		Latitude:   pos.Latitude,
		Longitude:  pos.Longitude,
		RecordedAt: recordedAt,
	}
	if err := s.db.WithContext(ctx).Create(&sample).Error; err != nil {
		s.recordWriteFailure(ctx, "insert_sample", badgeID, err)
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastRoom(gateway.BadgeRoom(badgeID), gateway.EventLocationInserted, sample)
	}
	return &sample, nil
}

// UpdateBadgeLocation refreshes the badge's denormalized last-location cache.
// The cache is best-effort: the location store stays authoritative and the
// next sample self-corrects a missed update.
func (s *Service) UpdateBadgeLocation(ctx context.Context, badgeID string, pos Position) error {
	at := pos.RecordedAt
	if at.IsZero() {
		at = time.Now()
	}
	err := s.db.WithContext(ctx).
		Model(&models.SurveyorBadgeModel{}).
		Where("id = ?", badgeID).
		Updates(map[string]interface{}{
			"last_lat":         pos.Latitude,
			"last_lng":         pos.Longitude,
			"last_location_at": at,
		}).Error
	if err != nil {
		s.recordWriteFailure(ctx, "update_badge_cache", badgeID, err)
	}
	return err
}

// RecentSamples returns up to limit samples for a badge, newest first.
func (s *Service) RecentSamples(ctx context.Context, badgeID string, limit int) ([]models.LocationSampleModel, error) {
	var samples []models.LocationSampleModel
	err := s.db.WithContext(ctx).
		Where("badge_id = ?", badgeID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&samples).Error
	return samples, err
}

// BadgeByID loads a badge row.
func (s *Service) BadgeByID(ctx context.Context, badgeID string) (*models.SurveyorBadgeModel, error) {
	var badge models.SurveyorBadgeModel
	err := s.db.WithContext(ctx).First(&badge, "id = ?", badgeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &badge, nil
}

// Ingest performs the durable-write pair for one device sample: insert into
// the location store, then refresh the badge cache. The two writes are
// independent; partial failure is logged and left to self-correct.
func (s *Service) Ingest(ctx context.Context, badge *models.SurveyorBadgeModel, pos Position) *models.LocationSampleModel {
	sample, insertErr := s.InsertSample(ctx, badge.ID, badge.SurveyorID, pos)
	if insertErr != nil && s.logger != nil {
		s.logger.Warn("location sample insert failed",
			zap.String("badge_id", badge.ID), zap.Error(insertErr))
	}
	if cacheErr := s.UpdateBadgeLocation(ctx, badge.ID, pos); cacheErr != nil && s.logger != nil {
		s.logger.Warn("badge location cache update failed",
			zap.String("badge_id", badge.ID), zap.Error(cacheErr))
	}
	return sample
}

func (s *Service) recordWriteFailure(ctx context.Context, op, badgeID string, cause error) {
	if s.tasks == nil {
		return
	}
	_, err := s.tasks.Record(ctx, taskTypeWriteFailure, map[string]string{
		"op":       op,
		"badge_id": badgeID,
	}, taskqueue.TaskFailed, cause.Error())
	if err != nil && s.logger != nil {
		s.logger.Warn("write failure audit record failed", zap.Error(err))
	}
}
