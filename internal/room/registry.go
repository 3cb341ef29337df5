package room

import "sync"

// Conn is one live bidirectional stream. The transport owns the
// connection; the registry only references it for membership and
// delivery.
type Conn interface {
	Send(data []byte) error
	Close() error
	RemoteAddr() string
}

// Registry maps room IDs to the set of connections currently joined.
// A connection belongs to at most one room; the member side table keeps
// the back-reference so Leave does not need the room ID.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]map[Conn]struct{}
	member map[Conn]string
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]map[Conn]struct{}),
		member: make(map[Conn]string),
	}
}

// Join adds c to roomID, removing it from any prior room first.
// Idempotent when already a member.
func (r *Registry) Join(roomID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.member[c]; ok {
		if prev == roomID {
			return
		}
		r.removeLocked(prev, c)
	}

	rs, ok := r.rooms[roomID]
	if !ok {
		rs = make(map[Conn]struct{})
		r.rooms[roomID] = rs
	}
	rs[c] = struct{}{}
	r.member[c] = roomID
}

// Leave removes c from whichever room it belongs to. Safe to call on
// every termination path; a second call is a no-op.
func (r *Registry) Leave(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if roomID, ok := r.member[c]; ok {
		r.removeLocked(roomID, c)
	}
}

// MembersOf returns a snapshot of the current membership, safe to
// iterate while joins and leaves continue elsewhere.
func (r *Registry) MembersOf(roomID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs := r.rooms[roomID]
	out := make([]Conn, 0, len(rs))
	for c := range rs {
		out = append(out, c)
	}
	return out
}

// DropRoom clears the membership record for roomID without closing the
// connections; they keep their handles and may rejoin.
func (r *Registry) DropRoom(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.rooms[roomID] {
		delete(r.member, c)
	}
	delete(r.rooms, roomID)
}

// RoomOf reports the room c currently belongs to, if any.
func (r *Registry) RoomOf(c Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomID, ok := r.member[c]
	return roomID, ok
}

func (r *Registry) removeLocked(roomID string, c Conn) {
	if rs, ok := r.rooms[roomID]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(r.rooms, roomID)
		}
	}
	delete(r.member, c)
}
