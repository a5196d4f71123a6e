package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, zap.NewNop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func collect(t *testing.T, ch <-chan Message, want int) []Message {
	t.Helper()
	out := make([]Message, 0, want)
	deadline := time.After(2 * time.Second)
	for len(out) < want {
		select {
		case msg := <-ch:
			out = append(out, msg)
		case <-deadline:
			t.Fatalf("expected %d messages, got %d", want, len(out))
		}
	}
	return out
}

func TestSubscribeRoomDeliversOnlyMatchingRoom(t *testing.T) {
	hub := newRunningHub(t)

	feed, cancel := hub.SubscribeRoom(BadgeRoom("b1"))
	defer cancel()

	hub.BroadcastRoom(BadgeRoom("other"), EventLocationInserted, "not for us")
	hub.BroadcastRoom(BadgeRoom("b1"), EventLocationInserted, "for us")

	msgs := collect(t, feed, 1)
	assert.Equal(t, "for us", msgs[0].Payload)
	assert.Equal(t, BadgeRoom("b1"), msgs[0].Room)

	select {
	case msg := <-feed:
		t.Fatalf("unexpected message for room %s", msg.Room)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeRoomCancelIsIdempotent(t *testing.T) {
	hub := newRunningHub(t)

	_, cancel := hub.SubscribeRoom(BadgeRoom("b1"))
	cancel()
	cancel()
}

func TestJoinBroadcastsPresenceWithCount(t *testing.T) {
	hub := newRunningHub(t)
	room := SurveyorRoom("s1")

	feed, cancel := hub.SubscribeRoom(room)
	defer cancel()

	hub.JoinRoom("sid-1", room)
	hub.JoinRoom("sid-2", room)

	msgs := collect(t, feed, 2)
	assert.Equal(t, EventPresenceJoin, msgs[0].Event)
	ev, ok := msgs[0].Payload.(PresenceEvent)
	require.True(t, ok)
	assert.Equal(t, "s1", ev.SurveyorID)
	assert.Equal(t, 1, ev.Count)

	ev, ok = msgs[1].Payload.(PresenceEvent)
	require.True(t, ok)
	assert.Equal(t, 2, ev.Count)
	assert.Equal(t, 2, hub.MemberCount(room))
}

func TestLeaveToEmptyStillCarriesTimestamp(t *testing.T) {
	hub := newRunningHub(t)
	room := SurveyorRoom("s1")

	hub.JoinRoom("sid-1", room)

	feed, cancel := hub.SubscribeRoom(room)
	defer cancel()

	hub.LeaveRoom("sid-1", room)

	msgs := collect(t, feed, 1)
	assert.Equal(t, EventPresenceLeave, msgs[0].Event)
	ev, ok := msgs[0].Payload.(PresenceEvent)
	require.True(t, ok)
	assert.Equal(t, 0, ev.Count)
	assert.NotEmpty(t, ev.Timestamp)
	assert.Equal(t, 0, hub.MemberCount(room))
}

func TestJoinIsIdempotentPerClient(t *testing.T) {
	hub := newRunningHub(t)
	room := SurveyorRoom("s1")

	hub.JoinRoom("sid-1", room)
	hub.JoinRoom("sid-1", room)

	assert.Equal(t, 1, hub.MemberCount(room))
}

func TestDisconnectReleasesAllRooms(t *testing.T) {
	hub := newRunningHub(t)

	hub.JoinRoom("sid-1", SurveyorRoom("s1"))
	hub.JoinRoom("sid-1", BadgeRoom("b1"))
	assert.Equal(t, 1, hub.ClientCount())

	hub.disconnectClient("sid-1")

	assert.Equal(t, 0, hub.MemberCount(SurveyorRoom("s1")))
	assert.Equal(t, 0, hub.MemberCount(BadgeRoom("b1")))
	assert.Equal(t, 0, hub.ClientCount())
}

func TestBroadcastAdminTargetsAdminRoom(t *testing.T) {
	hub := newRunningHub(t)

	feed, cancel := hub.SubscribeRoom(RoomAdmin)
	defer cancel()

	hub.BroadcastAdmin(EventSubmissionNew, "payload")

	msgs := collect(t, feed, 1)
	assert.Equal(t, RoomAdmin, msgs[0].Room)
	assert.Equal(t, EventSubmissionNew, msgs[0].Event)
}
