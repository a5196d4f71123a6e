package gateway

import (
	"context"
	"encoding/json"

	socketio "github.com/zishang520/socket.io/v2/socket"
)

func (h *Hub) format(event string, payload interface{}) gatewayPayload {
	return gatewayPayload{Type: event, Data: payload}
}

// deliver fans a message out to socket clients in the room and to in-process
// subscribers. Slow local subscribers lose the event rather than block the
// hub loop.
func (h *Hub) deliver(msg Message) {
	nsp := namespaceTrack
	if msg.Room == RoomAdmin {
		nsp = namespaceAdmin
	}
	h.sio.Of(nsp, nil).To(socketio.Room(msg.Room)).Emit("message", h.format(msg.Event, msg.Payload))

	h.subMu.Lock()
	for _, sub := range h.localSubs {
		if sub.room != msg.Room {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
	h.subMu.Unlock()
}

// subscribeRedis listens for broadcasts from other server instances. Messages
// originating from this instance were already delivered locally and are
// skipped.
func (h *Hub) subscribeRedis(ctx context.Context) {
	if h.rc == nil {
		return
	}
	pubsub := h.rc.Subscribe(ctx, redisChanFanout)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case redisMsg, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
				continue
			}
			if msg.Origin == h.instanceID {
				continue
			}
			h.deliver(msg)
		}
	}
}
