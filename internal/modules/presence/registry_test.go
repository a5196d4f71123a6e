package presence

import (
	"context"
	"testing"
	"time"

	"github.com/aquabrain57/procollekt/internal/modules/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T) (*Registry, *gateway.Hub) {
	t.Helper()
	db := newTestDB(t)
	hub := gateway.NewHub(nil, zap.NewNop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	svc := NewService(db, 5*time.Minute)
	reg := NewRegistry(ctx, svc, hub, zap.NewNop())
	t.Cleanup(reg.Close)
	return reg, hub
}

func TestRegistryReturnsSingletonMonitor(t *testing.T) {
	reg, _ := newTestRegistry(t)

	m1 := reg.Monitor("badge-1", "surveyor-1", nil)
	require.NotNil(t, m1)
	m2 := reg.Monitor("badge-1", "surveyor-1", nil)
	assert.Same(t, m1, m2)

	other := reg.Monitor("badge-2", "surveyor-2", nil)
	assert.NotSame(t, m1, other)
}

func TestRegistryMonitorIsLive(t *testing.T) {
	reg, hub := newTestRegistry(t)

	m := reg.Monitor("badge-1", "surveyor-1", nil)
	require.NotNil(t, m)

	hub.JoinRoom("sid-1", gateway.SurveyorRoom("surveyor-1"))
	require.Eventually(t, func() bool {
		return m.State().IsOnline
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegistrySeedsLastSeen(t *testing.T) {
	reg, _ := newTestRegistry(t)

	seed := time.Now().Add(-time.Hour)
	m := reg.Monitor("badge-1", "surveyor-1", &seed)
	require.NotNil(t, m)

	s := m.State()
	require.NotNil(t, s.LastSeen)
	assert.True(t, s.LastSeen.Equal(seed))
	assert.False(t, s.IsOnline)
}

func TestRegistryCloseStopsMonitors(t *testing.T) {
	reg, hub := newTestRegistry(t)

	m := reg.Monitor("badge-1", "surveyor-1", nil)
	require.NotNil(t, m)

	reg.Close()
	reg.Close() // idempotent

	assert.Nil(t, reg.Monitor("badge-1", "surveyor-1", nil))

	hub.JoinRoom("sid-1", gateway.SurveyorRoom("surveyor-1"))
	time.Sleep(100 * time.Millisecond)
	assert.False(t, m.State().IsOnline)
}

func TestRegistryWithoutHub(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(context.Background(), NewService(db, 5*time.Minute), nil, zap.NewNop())
	assert.Nil(t, reg.Monitor("badge-1", "surveyor-1", nil))
}
