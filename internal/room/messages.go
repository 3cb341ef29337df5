package room

import "github.com/roomkit/roomd/internal/domain"

// Inbound message types.
const (
	TypeJoin  = "join"  // switch the connection into a room
	TypeMsg   = "msg"   // ephemeral chat-style message
	TypeState = "state" // partial room-state update
)

// Outbound message types.
const (
	TypeWelcome = "welcome" // sent once on connect
	TypeJoined  = "joined"  // join acknowledgment to the sender
	TypeNotice  = "notice"  // room-wide informational event
	TypeError   = "error"   // per-message error ack, sender only
)

// Envelope is the wire format for both directions. Fields are
// type-specific; unused ones are omitted.
type Envelope struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	From    string          `json:"from,omitempty"`
	Text    string          `json:"text,omitempty"`
	Msg     string          `json:"msg,omitempty"`
	Payload domain.Document `json:"payload,omitempty"`
	Time    string          `json:"time,omitempty"`
	Error   string          `json:"error,omitempty"`
}
