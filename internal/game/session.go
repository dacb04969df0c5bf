// internal/game/session.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// Session binds a connection to the room and player it joined as.
type Session struct {
	ConnID   uuid.UUID
	RoomID   uuid.UUID
	PlayerID uuid.UUID
}

// SessionTracker knows every open connection and which of them are in a room.
// A connection belongs to at most one room at a time.
type SessionTracker struct {
	mu       sync.RWMutex
	conns    map[uuid.UUID]Conn
	sessions map[uuid.UUID]Session
}

func NewSessionTracker() *SessionTracker {
	return &SessionTracker{
		conns:    make(map[uuid.UUID]Conn),
		sessions: make(map[uuid.UUID]Session),
	}
}

func (t *SessionTracker) Register(conn Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[conn.ID()] = conn
}

// Unregister forgets the connection and returns its session, if it had one.
func (t *SessionTracker) Unregister(connID uuid.UUID) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, connID)
	s, ok := t.sessions[connID]
	delete(t.sessions, connID)
	return s, ok
}

func (t *SessionTracker) Bind(connID, roomID, playerID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.sessions[connID]; ok {
		return ErrAlreadyInRoom
	}
	t.sessions[connID] = Session{ConnID: connID, RoomID: roomID, PlayerID: playerID}
	return nil
}

func (t *SessionTracker) Unbind(connID uuid.UUID) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[connID]
	delete(t.sessions, connID)
	return s, ok
}

func (t *SessionTracker) Lookup(connID uuid.UUID) (Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[connID]
	return s, ok
}

// Idle returns the registered connections that are not in any room.
func (t *SessionTracker) Idle() []Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Conn, 0, len(t.conns))
	for id, c := range t.conns {
		if _, inRoom := t.sessions[id]; !inRoom {
			out = append(out, c)
		}
	}
	return out
}

func (t *SessionTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.conns)
}
