package presence

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aquabrain57/procollekt/internal/database"
	"github.com/aquabrain57/procollekt/internal/models"
	"github.com/aquabrain57/procollekt/internal/modules/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named shared-cache DSN keeps every pooled connection on the same
	// in-memory database while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedBadge(t *testing.T, db *gorm.DB) *models.SurveyorBadgeModel {
	t.Helper()
	badge := models.SurveyorBadgeModel{
		OwnerID:    "owner-1",
		SurveyorID: "surveyor-1",
		Name:       "Field Unit A",
		Status:     models.BadgeActive,
		Credential: "pkb_test",
	}
	require.NoError(t, db.Create(&badge).Error)
	return &badge
}

func insertSample(t *testing.T, db *gorm.DB, badgeID string, recordedAt time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.LocationSampleModel{
		BadgeID:    badgeID,
		SurveyorID: "surveyor-1",
		Latitude:   48.8584,
		Longitude:  2.2945,
		RecordedAt: recordedAt,
	}).Error)
}

func TestStatusForFreshSampleIsOnline(t *testing.T) {
	db := newTestDB(t)
	badge := seedBadge(t, db)
	insertSample(t, db, badge.ID, time.Now().Add(-2*time.Minute))

	svc := NewService(db, 5*time.Minute)
	dto := svc.StatusFor(badge, 0)

	assert.True(t, dto.IsOnline)
	require.NotNil(t, dto.LastSeen)
	assert.Equal(t, badge.ID, dto.BadgeID)
	assert.NotEmpty(t, dto.LastSeenText)
}

func TestStatusForStaleSampleNoConnectionIsOffline(t *testing.T) {
	db := newTestDB(t)
	badge := seedBadge(t, db)
	insertSample(t, db, badge.ID, time.Now().Add(-time.Hour))

	svc := NewService(db, 5*time.Minute)
	dto := svc.StatusFor(badge, 0)

	assert.False(t, dto.IsOnline)
	require.NotNil(t, dto.LastSeen)
}

func TestStatusForLiveConnectionBeatsStaleSample(t *testing.T) {
	db := newTestDB(t)
	badge := seedBadge(t, db)
	insertSample(t, db, badge.ID, time.Now().Add(-time.Hour))

	svc := NewService(db, 5*time.Minute)
	dto := svc.StatusFor(badge, 1)

	assert.True(t, dto.IsOnline)
	assert.Equal(t, 1, dto.PresenceCount)
}

func TestStatusForNoSamplesNoConnection(t *testing.T) {
	db := newTestDB(t)
	badge := seedBadge(t, db)

	svc := NewService(db, 5*time.Minute)
	dto := svc.StatusFor(badge, 0)

	assert.False(t, dto.IsOnline)
	assert.Nil(t, dto.LastSeen)
}

func TestMonitorFollowsPresenceFeed(t *testing.T) {
	db := newTestDB(t)
	badge := seedBadge(t, db)

	hub := gateway.NewHub(nil, zap.NewNop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	svc := NewService(db, 5*time.Minute)
	m := NewMonitor(svc, hub, zap.NewNop(), badge.ID, badge.SurveyorID, nil)
	m.Start(ctx)
	defer m.Close()

	hub.BroadcastRoom(gateway.SurveyorRoom(badge.SurveyorID), gateway.EventPresenceJoin, gateway.PresenceEvent{
		SurveyorID: badge.SurveyorID,
		Count:      1,
		Timestamp:  time.Now().Format(time.RFC3339Nano),
	})

	require.Eventually(t, func() bool {
		return m.State().IsOnline
	}, 2*time.Second, 10*time.Millisecond)

	hub.BroadcastRoom(gateway.SurveyorRoom(badge.SurveyorID), gateway.EventPresenceLeave, gateway.PresenceEvent{
		SurveyorID: badge.SurveyorID,
		Count:      0,
		Timestamp:  time.Now().Format(time.RFC3339Nano),
	})

	require.Eventually(t, func() bool {
		s := m.State()
		return !s.IsOnline && s.LastSeen != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMonitorFollowsChangeFeed(t *testing.T) {
	db := newTestDB(t)
	badge := seedBadge(t, db)

	hub := gateway.NewHub(nil, zap.NewNop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	svc := NewService(db, 5*time.Minute)
	m := NewMonitor(svc, hub, zap.NewNop(), badge.ID, badge.SurveyorID, nil)
	m.Start(ctx)
	defer m.Close()

	recordedAt := time.Now()
	hub.BroadcastRoom(gateway.BadgeRoom(badge.ID), gateway.EventLocationInserted, models.LocationSampleModel{
		BadgeID:    badge.ID,
		SurveyorID: badge.SurveyorID,
		Latitude:   48.85,
		Longitude:  2.29,
		RecordedAt: recordedAt,
	})

	require.Eventually(t, func() bool {
		s := m.State()
		return s.IsOnline && s.LastSeen != nil && s.LastSeen.Equal(recordedAt)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMonitorCloseStopsUpdates(t *testing.T) {
	db := newTestDB(t)
	badge := seedBadge(t, db)

	hub := gateway.NewHub(nil, zap.NewNop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	svc := NewService(db, 5*time.Minute)
	m := NewMonitor(svc, hub, zap.NewNop(), badge.ID, badge.SurveyorID, nil)
	m.Start(ctx)
	m.Close()
	m.Close() // idempotent

	hub.BroadcastRoom(gateway.SurveyorRoom(badge.SurveyorID), gateway.EventPresenceJoin, gateway.PresenceEvent{
		SurveyorID: badge.SurveyorID,
		Count:      1,
		Timestamp:  time.Now().Format(time.RFC3339Nano),
	})

	time.Sleep(100 * time.Millisecond)
	assert.False(t, m.State().IsOnline)
}

func TestMonitorSeesMembershipPredatingStart(t *testing.T) {
	db := newTestDB(t)
	badge := seedBadge(t, db)

	hub := gateway.NewHub(nil, zap.NewNop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// The surveyor's device connected before anyone watched the badge.
	hub.JoinRoom("sid-device", gateway.SurveyorRoom(badge.SurveyorID))

	svc := NewService(db, 5*time.Minute)
	m := NewMonitor(svc, hub, zap.NewNop(), badge.ID, badge.SurveyorID, nil)
	m.Start(ctx)
	defer m.Close()

	s := m.State()
	assert.True(t, s.IsOnline, "existing membership must read online on activation")
	assert.Equal(t, 1, s.PresenceCount)

	hub.LeaveRoom("sid-device", gateway.SurveyorRoom(badge.SurveyorID))
	require.Eventually(t, func() bool {
		st := m.State()
		return !st.IsOnline && st.LastSeen != nil
	}, 2*time.Second, 10*time.Millisecond)
}
