package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aquabrain57/procollekt/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	mu        sync.Mutex
	posCh     chan Position
	errCh     chan error
	watchErr  error
	watchGate chan struct{}
	released  bool
	watches   int
	releases  int
}

func (f *fakeSource) Watch(ctx context.Context, opts WatchOptions) (<-chan Position, <-chan error, func(), error) {
	f.mu.Lock()
	gate := f.watchGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchErr != nil {
		return nil, nil, nil, f.watchErr
	}
	f.watches++
	f.posCh = make(chan Position, 64)
	f.errCh = make(chan error, 1)
	release := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.released = true
		f.releases++
	}
	return f.posCh, f.errCh, release, nil
}

func (f *fakeSource) wasReleased() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

func (f *fakeSource) watchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watches
}

func (f *fakeSource) releaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releases
}

type memStore struct {
	mu         sync.Mutex
	nextID     int
	inserts    []models.LocationSampleModel
	recent     []models.LocationSampleModel
	cacheCalls int
	insertErr  error
	cacheErr   error
	recentErr  error
}

func (s *memStore) InsertSample(ctx context.Context, badgeID, surveyorID string, pos Position) (*models.LocationSampleModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	s.nextID++
	sample := models.LocationSampleModel{
		BadgeID:    badgeID,
		SurveyorID: surveyorID,
		Latitude:   pos.Latitude,
		Longitude:  pos.Longitude,
		RecordedAt: pos.RecordedAt,
	}
	sample.ID = fmt.Sprintf("sample-%d", s.nextID)
	s.inserts = append(s.inserts, sample)
	return &sample, nil
}

func (s *memStore) UpdateBadgeLocation(ctx context.Context, badgeID string, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheCalls++
	return s.cacheErr
}

func (s *memStore) RecentSamples(ctx context.Context, badgeID string, limit int) ([]models.LocationSampleModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	if len(s.recent) > limit {
		return s.recent[:limit], nil
	}
	return s.recent, nil
}

func (s *memStore) insertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserts)
}

func (s *memStore) cacheCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cacheCalls
}

func newTestTracker(store Store, source Source) *Tracker {
	return NewTracker(store, source, nil, zap.NewNop(), "badge-1", "surveyor-1", 50, WatchOptions{})
}

func TestTrackerHistoryBoundedNewestFirst(t *testing.T) {
	store := &memStore{}
	source := &fakeSource{}
	tr := newTestTracker(store, source)

	tr.StartTracking(context.Background())
	require.True(t, tr.Tracking())

	base := time.Now()
	for i := 0; i < 60; i++ {
		source.posCh <- Position{
			Latitude:   48.0 + float64(i)*0.001,
			Longitude:  2.0,
			RecordedAt: base.Add(time.Duration(i) * time.Second),
		}
	}

	require.Eventually(t, func() bool {
		return store.insertCount() == 60
	}, 2*time.Second, 10*time.Millisecond)

	snap := tr.Snapshot()
	assert.Equal(t, 50, snap.SampleCount)
	assert.Len(t, snap.History, 50)
	// Newest entry sits at the front of the window.
	assert.Equal(t, "sample-60", snap.History[0].ID)
	assert.Equal(t, "sample-11", snap.History[49].ID)
	assert.Equal(t, 60, store.cacheCount())

	tr.StopTracking()
	assert.False(t, tr.Tracking())
	assert.True(t, source.wasReleased())
}

func TestTrackerOptimisticUpdateSurvivesWriteFailures(t *testing.T) {
	store := &memStore{
		insertErr: errors.New("store down"),
		cacheErr:  errors.New("cache down"),
	}
	source := &fakeSource{}
	tr := newTestTracker(store, source)

	tr.StartTracking(context.Background())
	recordedAt := time.Now()
	source.posCh <- Position{Latitude: 48.8584, Longitude: 2.2945, RecordedAt: recordedAt}

	require.Eventually(t, func() bool {
		return store.cacheCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	snap := tr.Snapshot()
	require.NotNil(t, snap.Current)
	assert.Equal(t, 48.8584, snap.Current.Latitude)
	assert.Equal(t, "48.858400, 2.294500", snap.CurrentText)
	require.NotNil(t, snap.LastUpdate)
	assert.Equal(t, recordedAt, *snap.LastUpdate)
	// The failed insert leaves no history entry; the display state stands.
	assert.Zero(t, snap.SampleCount)
	assert.True(t, tr.Tracking())
}

func TestTrackerIndependentWritePair(t *testing.T) {
	store := &memStore{insertErr: errors.New("store down")}
	source := &fakeSource{}
	tr := newTestTracker(store, source)

	tr.StartTracking(context.Background())
	source.posCh <- Position{Latitude: 1, Longitude: 2, RecordedAt: time.Now()}

	// The cache write still happens when the insert fails.
	require.Eventually(t, func() bool {
		return store.cacheCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, store.insertCount())
}

func TestTrackerNoCapabilityStaysIdle(t *testing.T) {
	store := &memStore{}
	source := &fakeSource{watchErr: ErrNoCapability}
	tr := newTestTracker(store, source)

	tr.StartTracking(context.Background())
	assert.False(t, tr.Tracking())

	snap := tr.Snapshot()
	assert.False(t, snap.Tracking)
	assert.Nil(t, snap.Current)
}

func TestTrackerNilSourceStaysIdle(t *testing.T) {
	tr := newTestTracker(&memStore{}, nil)
	tr.StartTracking(context.Background())
	assert.False(t, tr.Tracking())
}

func TestTrackerStopWhenIdleIsNoOp(t *testing.T) {
	tr := newTestTracker(&memStore{}, &fakeSource{})
	tr.StopTracking()
	tr.StopTracking()
	assert.False(t, tr.Tracking())
}

func TestTrackerStartWhenTrackingIsNoOp(t *testing.T) {
	source := &fakeSource{}
	tr := newTestTracker(&memStore{}, source)

	tr.StartTracking(context.Background())
	tr.StartTracking(context.Background())

	source.mu.Lock()
	watches := source.watches
	source.mu.Unlock()
	assert.Equal(t, 1, watches)
}

func TestTrackerTerminalWatchErrorReturnsToIdle(t *testing.T) {
	store := &memStore{}
	source := &fakeSource{}
	tr := newTestTracker(store, source)

	tr.StartTracking(context.Background())
	source.errCh <- errors.New("permission revoked")

	require.Eventually(t, func() bool {
		return !tr.Tracking()
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, source.wasReleased())

	// A new start works after the failure.
	tr.StartTracking(context.Background())
	assert.True(t, tr.Tracking())
}

func TestFetchLocationsReplacesStateIdempotently(t *testing.T) {
	now := time.Now()
	store := &memStore{
		recent: []models.LocationSampleModel{
			{Latitude: 48.86, Longitude: 2.29, RecordedAt: now},
			{Latitude: 48.85, Longitude: 2.28, RecordedAt: now.Add(-time.Minute)},
		},
	}
	store.recent[0].ID = "sample-b"
	store.recent[1].ID = "sample-a"

	tr := newTestTracker(store, nil)

	tr.FetchLocations(context.Background())
	first := tr.Snapshot()
	tr.FetchLocations(context.Background())
	second := tr.Snapshot()

	assert.Equal(t, first, second)
	assert.Equal(t, 2, second.SampleCount)
	assert.Equal(t, "sample-b", second.History[0].ID)
	require.NotNil(t, second.Current)
	assert.Equal(t, 48.86, second.Current.Latitude)
	require.NotNil(t, second.LastUpdate)
	assert.Equal(t, now, *second.LastUpdate)
}

func TestFetchLocationsErrorLeavesStateUntouched(t *testing.T) {
	now := time.Now()
	store := &memStore{
		recent: []models.LocationSampleModel{{Latitude: 1, Longitude: 2, RecordedAt: now}},
	}
	store.recent[0].ID = "sample-1"

	tr := newTestTracker(store, nil)
	tr.FetchLocations(context.Background())
	before := tr.Snapshot()

	store.mu.Lock()
	store.recentErr = errors.New("store down")
	store.mu.Unlock()

	tr.FetchLocations(context.Background())
	assert.Equal(t, before, tr.Snapshot())
}

func TestPrependSampleDedupesByID(t *testing.T) {
	tr := newTestTracker(&memStore{}, nil)

	sample := models.LocationSampleModel{Latitude: 1, Longitude: 2, RecordedAt: time.Now()}
	sample.ID = "sample-1"

	tr.prependSample(sample)
	tr.prependSample(sample)

	assert.Equal(t, 1, tr.Snapshot().SampleCount)
}

func TestHistoryRowDisplayPrecision(t *testing.T) {
	sample := models.LocationSampleModel{Latitude: 48.858412345, Longitude: 2.294512345}
	row := toSampleRow(sample)

	assert.Equal(t, "48.8584, 2.2945", row.Display)
	// Raw values keep full precision for map rendering.
	assert.Equal(t, 48.858412345, row.Latitude)
}

func TestTrackerConcurrentStartOpensSingleWatch(t *testing.T) {
	source := &fakeSource{watchGate: make(chan struct{})}
	tr := newTestTracker(&memStore{}, source)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.StartTracking(context.Background())
		}()
	}

	// Let both goroutines hit StartTracking while the first acquisition
	// is still blocked inside Watch, then let it proceed.
	time.Sleep(50 * time.Millisecond)
	close(source.watchGate)
	wg.Wait()

	require.True(t, tr.Tracking())
	assert.Equal(t, 1, source.watchCount())

	tr.Close()
	assert.Equal(t, source.watchCount(), source.releaseCount())
}
