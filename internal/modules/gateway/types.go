package gateway

import (
	"sync"

	pkgredis "github.com/aquabrain57/procollekt/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

const (
	// RoomAdmin receives workspace-wide events (new submissions, badge changes).
	RoomAdmin = "admin"

	namespaceAdmin = "/admin"
	namespaceTrack = "/track"

	redisChanFanout = "pk:gateway:fanout"

	// Feed event names.
	EventPresenceSync     = "presence:sync"
	EventPresenceJoin     = "presence:join"
	EventPresenceLeave    = "presence:leave"
	EventLocationInserted = "location:inserted"
	EventSubmissionNew    = "submission:new"
)

// SurveyorRoom names the presence feed channel for a surveyor. The name is
// deterministic so every viewer of the same surveyor lands in the same room.
func SurveyorRoom(surveyorID string) string { return "surveyor:" + surveyorID }

// BadgeRoom names the change feed channel for a badge's location samples.
func BadgeRoom(badgeID string) string { return "badge:" + badgeID }

// Message is the envelope used by hub broadcasts and Redis fan-out.
type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	Room    string      `json:"room,omitempty"`
	Origin  string      `json:"origin,omitempty"` // instance id, suppresses pub/sub echo
}

type gatewayPayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// PresenceEvent is the payload of presence feed events.
type PresenceEvent struct {
	SurveyorID string `json:"surveyor_id"`
	Count      int    `json:"count"`
	Timestamp  string `json:"timestamp"`
}

type localSub struct {
	room string
	ch   chan Message
}

// Hub manages socket.io namespaces, room membership, in-process feed
// subscriptions and cross-instance Redis fan-out.
type Hub struct {
	mu sync.RWMutex

	sidRooms    map[string]map[string]struct{} // sid -> joined rooms
	roomMembers map[string]map[string]struct{} // room -> member sids

	subMu     sync.Mutex
	nextSubID int
	localSubs map[int]localSub

	broadcast chan Message

	instanceID          string
	rc                  *pkgredis.Client
	logger              *zap.Logger
	sio                 *socketio.Server
	adminTokenValidator func(string) bool
}
