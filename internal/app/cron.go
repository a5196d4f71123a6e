package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aquabrain57/procollekt/internal/models"
	"github.com/aquabrain57/procollekt/internal/modules/badge"
	pkgcron "github.com/aquabrain57/procollekt/internal/pkg/cron"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, logger *zap.Logger) {
	badgeSvc := badge.NewService(db)
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "reconcile_badge_locations",
		Description: "repair badge location caches from the sample store",
		Interval:    15 * time.Minute,
		Fn: func(ctx context.Context) error {
			repaired, err := badgeSvc.ReconcileLocationCaches()
			if err != nil {
				cronLogger.Warn("badge location reconcile failed", zap.Error(err))
				return err
			}
			if repaired > 0 {
				cronLogger.Info(fmt.Sprintf("badge location reconcile repaired %d caches", repaired))
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "expire_stale_badges",
		Description: "expire badges with no location activity for 30 days",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			expired, err := badgeSvc.ExpireStale(30 * 24 * time.Hour)
			if err != nil {
				cronLogger.Warn("badge expiry sweep failed", zap.Error(err))
				return err
			}
			if expired > 0 {
				cronLogger.Info(fmt.Sprintf("expired %d stale badges", expired))
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "cleanup_sessions",
		Description: "delete expired and revoked sign-in sessions",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			result := db.Unscoped().
				Where("expires_at < ? OR revoked_at IS NOT NULL", time.Now()).
				Delete(&models.UserSession{})
			if result.Error != nil {
				cronLogger.Warn("session cleanup failed", zap.Error(result.Error))
				return result.Error
			}
			if result.RowsAffected > 0 {
				cronLogger.Info(fmt.Sprintf("session cleanup removed %d rows", result.RowsAffected))
			}
			return nil
		},
	})
}
