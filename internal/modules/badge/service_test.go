package badge

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aquabrain57/procollekt/internal/database"
	"github.com/aquabrain57/procollekt/internal/models"
	"github.com/aquabrain57/procollekt/internal/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestIssueGeneratesCredential(t *testing.T) {
	svc := NewService(newTestDB(t))

	badge, err := svc.Issue("owner-1", &IssueDTO{SurveyorID: "surveyor-1", Name: "Unit A"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(badge.Credential, "pkb_"))
	assert.Equal(t, models.BadgeActive, badge.Status)
	assert.NotEmpty(t, badge.ID)
}

func TestIssueRejectsDuplicateSurveyor(t *testing.T) {
	svc := NewService(newTestDB(t))

	_, err := svc.Issue("owner-1", &IssueDTO{SurveyorID: "surveyor-1"})
	require.NoError(t, err)

	_, err = svc.Issue("owner-1", &IssueDTO{SurveyorID: "surveyor-1"})
	assert.ErrorIs(t, err, ErrDuplicateSurveyor)
}

func TestGetByCredentialOnlyResolvesActive(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	issued, err := svc.Issue("owner-1", &IssueDTO{SurveyorID: "surveyor-1"})
	require.NoError(t, err)

	found, err := svc.GetByCredential(issued.Credential)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, issued.ID, found.ID)

	suspended := models.BadgeSuspended
	require.NoError(t, svc.Update(issued.ID, &UpdateDTO{Status: &suspended}))

	found, err = svc.GetByCredential(issued.Credential)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRotateReplacesCredential(t *testing.T) {
	svc := NewService(newTestDB(t))

	issued, err := svc.Issue("owner-1", &IssueDTO{SurveyorID: "surveyor-1"})
	require.NoError(t, err)

	rotated, err := svc.Rotate(issued.ID)
	require.NoError(t, err)
	assert.NotEqual(t, issued.Credential, rotated.Credential)

	stale, err := svc.GetByCredential(issued.Credential)
	require.NoError(t, err)
	assert.Nil(t, stale)
}

func TestListFiltersByStatus(t *testing.T) {
	svc := NewService(newTestDB(t))

	a, err := svc.Issue("owner-1", &IssueDTO{SurveyorID: "surveyor-1"})
	require.NoError(t, err)
	_, err = svc.Issue("owner-1", &IssueDTO{SurveyorID: "surveyor-2"})
	require.NoError(t, err)

	suspended := models.BadgeSuspended
	require.NoError(t, svc.Update(a.ID, &UpdateDTO{Status: &suspended}))

	badges, pag, err := svc.List("owner-1", pagination.Query{Page: 1, Size: 10}, ListQuery{Status: &suspended})
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Equal(t, a.ID, badges[0].ID)
	assert.EqualValues(t, 1, pag.Total)
}

func TestReconcileRepairsMissedCacheWrite(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	issued, err := svc.Issue("owner-1", &IssueDTO{SurveyorID: "surveyor-1"})
	require.NoError(t, err)

	// A sample landed in the store but the badge cache write was missed.
	recordedAt := time.Now().Truncate(time.Second)
	require.NoError(t, db.Create(&models.LocationSampleModel{
		BadgeID:    issued.ID,
		SurveyorID: issued.SurveyorID,
		Latitude:   48.8584,
		Longitude:  2.2945,
		RecordedAt: recordedAt,
	}).Error)

	repaired, err := svc.ReconcileLocationCaches()
	require.NoError(t, err)
	assert.EqualValues(t, 1, repaired)

	reloaded, err := svc.GetByID(issued.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLat)
	assert.Equal(t, 48.8584, *reloaded.LastLat)

	// A second run finds nothing to repair.
	repaired, err = svc.ReconcileLocationCaches()
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

func TestExpireStaleOnlyTouchesInactiveBadges(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	stale, err := svc.Issue("owner-1", &IssueDTO{SurveyorID: "surveyor-1"})
	require.NoError(t, err)
	fresh, err := svc.Issue("owner-1", &IssueDTO{SurveyorID: "surveyor-2"})
	require.NoError(t, err)

	old := time.Now().Add(-40 * 24 * time.Hour)
	recent := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.SurveyorBadgeModel{}).Where("id = ?", stale.ID).
		Update("last_location_at", old).Error)
	require.NoError(t, db.Model(&models.SurveyorBadgeModel{}).Where("id = ?", fresh.ID).
		Update("last_location_at", recent).Error)

	expired, err := svc.ExpireStale(30 * 24 * time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)

	reloaded, err := svc.GetByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BadgeExpired, reloaded.Status)

	reloaded, err = svc.GetByID(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BadgeActive, reloaded.Status)
}
