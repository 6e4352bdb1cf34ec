package ws

const ProtocolVersion = "1.0"

// Client to server message types.
const (
	TypeQueueJoin     = "queue:join"
	TypeQueueLeave    = "queue:leave"
	TypeQueueStatus   = "queue:status"
	TypeMatchJoin     = "match:join"
	TypeMatchLeave    = "match:leave"
	TypeSpectateJoin  = "spectate:join"
	TypeSpectateLeave = "spectate:leave"
	TypePing          = "ping"
)

// Server to client message types beyond the matchmaking and match events,
// which are forwarded under their own names.
const (
	TypeQueueUpdate = "queue:update"
	TypePong        = "pong"
	TypeError       = "error"
)

type ClientMessage struct {
	Type    string `json:"type"`
	AgentID string `json:"agentId,omitempty"`
	MatchID string `json:"matchId,omitempty"`
}

type ServerMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	TimestampMS     int64  `json:"timestamp_ms"`
	EventID         string `json:"event_id,omitempty"`
	Data            any    `json:"data,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
