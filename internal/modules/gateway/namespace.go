package gateway

import (
	"encoding/json"
	"strings"
	"time"

	socketio "github.com/zishang520/socket.io/v2/socket"
)

type inboundMessage struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

const (
	messageJoin  = "join"
	messageLeave = "leave"
)

func (h *Hub) registerNamespaces() {
	trackNS := h.sio.Of(namespaceTrack, nil)
	_ = trackNS.On("connection", func(args ...any) {
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}
		sid := string(client.Id())
		_ = client.Emit("message", h.format("GATEWAY_CONNECT", "WebSocket connected"))

		_ = client.On("message", func(eventArgs ...any) {
			msg, ok := parseInboundMessage(eventArgs...)
			if !ok {
				return
			}
			room := strFromAny(msg.Payload["room"])
			if room == "" {
				return
			}

			switch msg.Type {
			case messageJoin:
				client.Join(socketio.Room(room))
				h.JoinRoom(sid, room)
				if surveyorID, isPresence := surveyorOfRoom(room); isPresence {
					// Sync snapshot so a fresh viewer knows the membership
					// before any join/leave arrives.
					_ = client.Emit("message", h.format(EventPresenceSync, PresenceEvent{
						SurveyorID: surveyorID,
						Count:      h.MemberCount(room),
						Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
					}))
				}
			case messageLeave:
				client.Leave(socketio.Room(room))
				h.LeaveRoom(sid, room)
			}
		})

		_ = client.On("disconnect", func(_ ...any) {
			h.disconnectClient(sid)
		})
	})

	adminNS := h.sio.Of(namespaceAdmin, nil)
	_ = adminNS.On("connection", func(args ...any) {
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}

		token := normalizeToken(extractToken(client))
		if token == "" || h.adminTokenValidator == nil || !h.adminTokenValidator(token) {
			_ = client.Emit("message", h.format("AUTH_FAILED", "auth failed"))
			client.Disconnect(true)
			return
		}

		sid := string(client.Id())
		client.Join(socketio.Room(RoomAdmin))
		h.JoinRoom(sid, RoomAdmin)
		_ = client.Emit("message", h.format("GATEWAY_CONNECT", "WebSocket connected"))

		_ = client.On("disconnect", func(_ ...any) {
			h.disconnectClient(sid)
		})
	})
}

func extractToken(client *socketio.Socket) string {
	handshake := client.Handshake()
	if handshake == nil {
		return ""
	}
	if token := firstValueFromMultiMap(handshake.Query, "token"); token != "" {
		return token
	}
	return firstValueFromMultiMap(handshake.Headers, "authorization")
}

func firstValueFromMultiMap(values map[string][]string, key string) string {
	for k, list := range values {
		if !strings.EqualFold(strings.TrimSpace(k), key) || len(list) == 0 {
			continue
		}
		if v := strings.TrimSpace(list[0]); v != "" {
			return v
		}
	}
	return ""
}

func normalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

func parseInboundMessage(args ...any) (inboundMessage, bool) {
	if len(args) == 0 || args[0] == nil {
		return inboundMessage{}, false
	}

	var msg inboundMessage
	switch raw := args[0].(type) {
	case map[string]interface{}:
		msg.Type = strFromAny(raw["type"])
		msg.Payload, _ = raw["payload"].(map[string]interface{})
	case string:
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return inboundMessage{}, false
		}
	case []byte:
		if err := json.Unmarshal(raw, &msg); err != nil {
			return inboundMessage{}, false
		}
	default:
		data, err := json.Marshal(raw)
		if err != nil {
			return inboundMessage{}, false
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return inboundMessage{}, false
		}
	}

	msg.Type = strings.TrimSpace(msg.Type)
	if msg.Type == "" {
		return inboundMessage{}, false
	}
	if msg.Payload == nil {
		msg.Payload = map[string]interface{}{}
	}
	return msg, true
}

func strFromAny(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
