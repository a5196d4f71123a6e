package location

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
		Status:     models.BadgeActive,
		Credential: "pkb_test",
	}
	require.NoError(t, db.Create(&badge).Error)
	return &badge
}

func TestInsertSampleBroadcastsOnChangeFeed(t *testing.T) {
	db := newTestDB(t)
	badge := seedBadge(t, db)

	hub := gateway.NewHub(nil, zap.NewNop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	feed, cancelFeed := hub.SubscribeRoom(gateway.BadgeRoom(badge.ID))
	defer cancelFeed()

	svc := NewService(db, hub, nil, zap.NewNop())
	recordedAt := time.Now()
	sample, err := svc.InsertSample(ctx, badge.ID, badge.SurveyorID, Position{
		Latitude: 48.8584, Longitude: 2.2945, RecordedAt: recordedAt,
	})
	require.NoError(t, err)
	require.NotEmpty(t, sample.ID)

	select {
	case msg := <-feed:
		assert.Equal(t, gateway.EventLocationInserted, msg.Event)
		got, ok := msg.Payload.(models.LocationSampleModel)
		require.True(t, ok)
		assert.Equal(t, sample.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("change feed event not delivered")
	}
}

func TestIngestWritePairUpdatesCache(t *testing.T) {
	db := newTestDB(t)
	badge := seedBadge(t, db)

	svc := NewService(db, nil, nil, zap.NewNop())
	recordedAt := time.Now().Truncate(time.Second)
	sample := svc.Ingest(context.Background(), badge, Position{
		Latitude: 48.8584, Longitude: 2.2945, RecordedAt: recordedAt,
	})
	require.NotNil(t, sample)

	var reloaded models.SurveyorBadgeModel
	require.NoError(t, db.First(&reloaded, "id = ?", badge.ID).Error)
	require.NotNil(t, reloaded.LastLat)
	require.NotNil(t, reloaded.LastLng)
	require.NotNil(t, reloaded.LastLocationAt)
	assert.Equal(t, 48.8584, *reloaded.LastLat)
	assert.Equal(t, 2.2945, *reloaded.LastLng)
}

func TestRecentSamplesNewestFirstLimited(t *testing.T) {
	db := newTestDB(t)
	badge := seedBadge(t, db)

	svc := NewService(db, nil, nil, zap.NewNop())
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		_, err := svc.InsertSample(context.Background(), badge.ID, badge.SurveyorID, Position{
			Latitude:   float64(i),
			Longitude:  0,
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	samples, err := svc.RecentSamples(context.Background(), badge.ID, 10)
	require.NoError(t, err)
	require.Len(t, samples, 10)
	assert.Equal(t, float64(11), samples[0].Latitude)
	assert.Equal(t, float64(2), samples[9].Latitude)
}

func TestBadgeByIDMissingReturnsNil(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, nil, zap.NewNop())

	badge, err := svc.BadgeByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, badge)
}
