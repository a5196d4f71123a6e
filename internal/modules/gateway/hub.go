package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	pkgredis "github.com/aquabrain57/procollekt/internal/pkg/redis"
	"github.com/google/uuid"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

func NewHub(rc *pkgredis.Client, logger *zap.Logger, adminTokenValidator func(string) bool) *Hub {
	sio := socketio.NewServer(nil, nil)
	h := &Hub{
		sidRooms:            make(map[string]map[string]struct{}),
		roomMembers:         make(map[string]map[string]struct{}),
		localSubs:           make(map[int]localSub),
		broadcast:           make(chan Message, 256),
		instanceID:          uuid.New().String(),
		rc:                  rc,
		logger:              logger,
		sio:                 sio,
		adminTokenValidator: adminTokenValidator,
	}
	h.registerNamespaces()
	return h
}

// Run starts the hub loop and Redis subscriber.
func (h *Hub) Run(ctx context.Context) {
	go h.subscribeRedis(ctx)

	for {
		select {
		case <-ctx.Done():
			h.sio.Close(nil)
			return

		case msg := <-h.broadcast:
			h.deliver(msg)
			if h.rc == nil {
				continue
			}
			msg.Origin = h.instanceID
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := h.rc.Publish(ctx, redisChanFanout, string(data)); err != nil && h.logger != nil {
				h.logger.Warn("gateway publish failed", zap.Error(err))
			}
		}
	}
}

// BroadcastRoom sends an event to all clients and local subscribers of a room.
func (h *Hub) BroadcastRoom(room, event string, payload interface{}) {
	h.broadcast <- Message{Event: event, Payload: payload, Room: room}
}

// BroadcastAdmin sends to the admin room only.
func (h *Hub) BroadcastAdmin(event string, payload interface{}) {
	h.BroadcastRoom(RoomAdmin, event, payload)
}

// SubscribeRoom opens an in-process subscription to a room's feed. The second
// return value releases the subscription; it is safe to call more than once.
// Events are dropped, not queued, when the subscriber falls behind.
func (h *Hub) SubscribeRoom(room string) (<-chan Message, func()) {
	h.subMu.Lock()
	h.nextSubID++
	id := h.nextSubID
	ch := make(chan Message, 64)
	h.localSubs[id] = localSub{room: room, ch: ch}
	h.subMu.Unlock()

	var once bool
	cancel := func() {
		h.subMu.Lock()
		defer h.subMu.Unlock()
		if once {
			return
		}
		once = true
		delete(h.localSubs, id)
		close(ch)
	}
	return ch, cancel
}

// MemberCount returns the number of live clients joined to a room.
func (h *Hub) MemberCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.roomMembers[room])
}

// ClientCount returns the number of connected clients across all rooms.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sidRooms)
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}

// JoinRoom records membership and, for surveyor presence rooms, broadcasts a
// join event carrying the new member count.
func (h *Hub) JoinRoom(sid, room string) {
	h.mu.Lock()
	if _, ok := h.sidRooms[sid]; !ok {
		h.sidRooms[sid] = make(map[string]struct{})
	}
	if _, already := h.sidRooms[sid][room]; already {
		h.mu.Unlock()
		return
	}
	h.sidRooms[sid][room] = struct{}{}
	if _, ok := h.roomMembers[room]; !ok {
		h.roomMembers[room] = make(map[string]struct{})
	}
	h.roomMembers[room][sid] = struct{}{}
	count := len(h.roomMembers[room])
	h.mu.Unlock()

	if surveyorID, ok := surveyorOfRoom(room); ok {
		h.BroadcastRoom(room, EventPresenceJoin, PresenceEvent{
			SurveyorID: surveyorID,
			Count:      count,
			Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// LeaveRoom drops membership and broadcasts a leave event for presence rooms.
// The leave event still carries a timestamp even when the room empties: the
// moment of leaving counts as a last-seen observation.
func (h *Hub) LeaveRoom(sid, room string) {
	h.mu.Lock()
	rooms, ok := h.sidRooms[sid]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, joined := rooms[room]; !joined {
		h.mu.Unlock()
		return
	}
	delete(rooms, room)
	if len(rooms) == 0 {
		delete(h.sidRooms, sid)
	}
	delete(h.roomMembers[room], sid)
	count := len(h.roomMembers[room])
	if count == 0 {
		delete(h.roomMembers, room)
	}
	h.mu.Unlock()

	if surveyorID, ok := surveyorOfRoom(room); ok {
		h.BroadcastRoom(room, EventPresenceLeave, PresenceEvent{
			SurveyorID: surveyorID,
			Count:      count,
			Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// disconnectClient releases every room the client had joined.
func (h *Hub) disconnectClient(sid string) {
	h.mu.RLock()
	rooms := make([]string, 0, len(h.sidRooms[sid]))
	for room := range h.sidRooms[sid] {
		rooms = append(rooms, room)
	}
	h.mu.RUnlock()

	for _, room := range rooms {
		h.LeaveRoom(sid, room)
	}
}

func surveyorOfRoom(room string) (string, bool) {
	const prefix = "surveyor:"
	if len(room) > len(prefix) && room[:len(prefix)] == prefix {
		return room[len(prefix):], true
	}
	return "", false
}
