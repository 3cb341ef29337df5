package room

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roomkit/roomd/internal/domain"
	"github.com/roomkit/roomd/pkg/metrics"
)

// StateStore is the slice of the state store the session protocol needs.
type StateStore interface {
	Load(roomID string) (domain.Document, error)
	Merge(roomID string, partial domain.Document) (domain.Document, error)
}

// Session is one connection's protocol state: Connected (no room yet),
// Joined (roomID set), Closed. The transport feeds it messages strictly
// in arrival order, so fields need no locking beyond the leave guard.
type Session struct {
	id     string
	conn   Conn
	roomID string // "" until the first join

	leaveOnce sync.Once
}

// ID is the session identifier, derived from the remote address and the
// connect timestamp.
func (s *Session) ID() string { return s.id }

// Room is the session's current room, or "" before the first join.
func (s *Session) Room() string { return s.roomID }

// Server drives the session protocol for every connection. Per-message
// errors are converted into error acks or log entries local to that
// connection; nothing a client sends is ever fatal.
type Server struct {
	reg   *Registry
	bcast *Broadcaster
	store StateStore

	defaultRoom func() string
}

func NewServer(reg *Registry, bcast *Broadcaster, store StateStore, defaultRoom func() string) *Server {
	return &Server{
		reg:         reg,
		bcast:       bcast,
		store:       store,
		defaultRoom: defaultRoom,
	}
}

// OnConnect registers a new Connected-state session and sends the
// welcome ack.
func (s *Server) OnConnect(c Conn) *Session {
	sess := &Session{
		id:   fmt.Sprintf("%s-%s", c.RemoteAddr(), isoNow()),
		conn: c,
	}
	metrics.ConnectionsActive.Inc()
	slog.Info("session connected", "peer", c.RemoteAddr())

	s.send(sess, Envelope{Type: TypeWelcome, Time: isoNow()})
	return sess
}

// OnMessage feeds one raw inbound message into the session state
// machine.
func (s *Server) OnMessage(sess *Session, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.sendError(sess, "invalid json")
		return
	}
	metrics.MessagesTotal.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case TypeJoin:
		s.handleJoin(sess, env)
	case TypeMsg:
		s.handleMsg(sess, env)
	case TypeState:
		s.handleState(sess, env)
	default:
		s.sendError(sess, "unknown type")
	}
}

// OnDisconnect runs the leave cleanup and moves the session to Closed.
// Idempotent: concurrent termination triggers collapse into one Leave.
func (s *Server) OnDisconnect(sess *Session) {
	sess.leaveOnce.Do(func() {
		s.reg.Leave(sess.conn)
		metrics.ConnectionsActive.Dec()
		slog.Info("session disconnected", "peer", sess.conn.RemoteAddr())
	})
}

func (s *Server) handleJoin(sess *Session, env Envelope) {
	roomID := domain.SanitizeRoomID(env.Room, s.defaultRoom())

	s.reg.Join(roomID, sess.conn)
	sess.roomID = roomID

	// Warm the room document so the first HTTP read or state update
	// starts from the persisted content.
	if _, err := s.store.Load(roomID); err != nil {
		slog.Error("room document load failed", "room", roomID, "err", err)
	}

	s.send(sess, Envelope{Type: TypeJoined, Room: roomID})
	s.bcast.Broadcast(roomID, Envelope{
		Type: TypeNotice,
		Msg:  sess.id + " joined",
	}, sess.conn)
}

func (s *Server) handleMsg(sess *Session, env Envelope) {
	if sess.roomID == "" {
		s.sendError(sess, "not joined")
		return
	}
	s.bcast.Broadcast(sess.roomID, Envelope{
		Type: TypeMsg,
		From: sess.id,
		Text: env.Text,
	}, nil)
}

func (s *Server) handleState(sess *Session, env Envelope) {
	if sess.roomID == "" {
		s.sendError(sess, "not joined")
		return
	}
	partial := env.Payload
	if partial == nil {
		partial = domain.Document{}
	}
	if _, err := s.store.Merge(sess.roomID, partial); err != nil {
		// In-memory merge survives a failed write; members still get
		// the update and disk catches up on the next successful merge.
		slog.Error("room state persist failed", "room", sess.roomID, "err", err)
	}
	s.bcast.Broadcast(sess.roomID, Envelope{
		Type:    TypeState,
		From:    sess.id,
		Payload: env.Payload,
	}, nil)
}

func (s *Server) send(sess *Session, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("ack marshal failed", "type", env.Type, "err", err)
		return
	}
	if err := sess.conn.Send(data); err != nil {
		slog.Debug("ack send failed", "peer", sess.conn.RemoteAddr(), "err", err)
	}
}

func (s *Server) sendError(sess *Session, msg string) {
	s.send(sess, Envelope{Type: TypeError, Error: msg})
}

func isoNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
