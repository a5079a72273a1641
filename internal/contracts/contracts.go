package contracts

// Event names are part of the wire contract between the API tier, the relay,
// and connected clients. Do not rename without coordinating a client release.
const (
	EventTaskCreated         = "task:created"
	EventTaskMoved           = "task:moved"
	EventTaskUpdated         = "task:updated"
	EventTaskDeleted         = "task:deleted"
	EventCommentCreated      = "comment:created"
	EventCommentDeleted      = "comment:deleted"
	EventActivityCreated     = "activity:created"
	EventNotificationCreated = "notification:created"
)

// Relay-originated socket events.
const (
	EventJoined     = "joined"
	EventJoinDenied = "join-denied"
)

// Join denial reasons.
const (
	DenyMissingBoardID = "missing_boardId"
	DenyFailedLookup   = "failed_lookup"
	DenyNotMember      = "not_member"
)

// BroadcastRequest is the body accepted by the relay's /broadcast ingress.
// BoardID empty means "emit to every connected socket".
type BroadcastRequest struct {
	Event   string `json:"event"`
	BoardID string `json:"boardId,omitempty"`
	Data    any    `json:"data"`
}

// Envelope wraps every event payload delivered to a socket.
type Envelope struct {
	BoardID string `json:"boardId"`
	Data    any    `json:"data"`
}

// SocketMessage is the framing for client->relay and relay->client traffic.
// Clients send {type: "join-board"|"leave-board", boardId}; the relay sends
// {event, payload} where payload is an Envelope for board-scoped events.
type SocketMessage struct {
	Type    string `json:"type,omitempty"`
	BoardID string `json:"boardId,omitempty"`
	Event   string `json:"event,omitempty"`
	Payload any    `json:"payload,omitempty"`
}
