// internal/game/engine.go
package game

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config holds engine-wide defaults applied to every new room.
type Config struct {
	DrawInterval time.Duration
	DefaultMode  GameMode
	EndOnBingo   bool
}

// Engine routes connection requests to rooms. It owns the room registry and the
// connection sessions; all game state lives inside the rooms themselves.
type Engine struct {
	Rooms    *RoomStore
	Sessions *SessionTracker

	cfg       Config
	deps      Deps
	logger    *logrus.Logger
	publishMu sync.Mutex
}

func NewEngine(cfg Config, deps Deps) *Engine {
	if cfg.DefaultMode == nil {
		cfg.DefaultMode = Classic75
	}
	if cfg.DrawInterval <= 0 {
		cfg.DrawInterval = DefaultDrawInterval
	}
	return &Engine{
		Rooms:    NewRoomStore(),
		Sessions: NewSessionTracker(),
		cfg:      cfg,
		deps:     deps,
		logger:   deps.logger(),
	}
}

// Connect registers a new connection. It receives room listing pushes until it
// joins a room.
func (e *Engine) Connect(conn Conn) {
	e.Sessions.Register(conn)
	e.logger.WithFields(logrus.Fields{"conn_id": conn.ID(), "user_id": conn.UserID()}).Debug("connection registered")
}

// Disconnect removes the connection's player, if any, and forgets the connection.
func (e *Engine) Disconnect(conn Conn) {
	e.Leave(conn.ID())
	e.Sessions.Unregister(conn.ID())
	e.logger.WithField("conn_id", conn.ID()).Debug("connection unregistered")
}

// Leave removes the connection's player from its room. Unknown or idle
// connections are ignored.
func (e *Engine) Leave(connID uuid.UUID) {
	sess, ok := e.Sessions.Unbind(connID)
	if !ok {
		return
	}
	room, ok := e.Rooms.GetRoom(sess.RoomID)
	if !ok {
		return
	}
	if _, err := room.RemovePlayer(sess.PlayerID); err != nil {
		e.logger.WithFields(logrus.Fields{"conn_id": connID, "room_id": sess.RoomID}).Warnf("leave: %v", err)
	}
}

// CreateRoom makes a new room with the caller as host.
func (e *Engine) CreateRoom(conn Conn, roomName, playerName, modeName string) (*Room, *Player, error) {
	if _, inRoom := e.Sessions.Lookup(conn.ID()); inRoom {
		return nil, nil, ErrAlreadyInRoom
	}
	name, err := validateName(roomName)
	if err != nil {
		return nil, nil, err
	}
	mode := e.cfg.DefaultMode
	if strings.TrimSpace(modeName) != "" {
		if mode, err = ParseMode(modeName); err != nil {
			return nil, nil, err
		}
	}

	room := NewRoom(name, mode, RoomSettings{
		DrawInterval: e.cfg.DrawInterval,
		EndOnBingo:   e.cfg.EndOnBingo,
	}, e.deps)
	room.OnEmpty = func(roomID uuid.UUID) {
		e.Rooms.DeleteRoom(roomID)
		e.logger.WithField("room_id", roomID).Info("room removed from registry")
		go e.publishRooms()
	}
	room.OnListingChange = e.publishRooms

	p, err := room.Join(playerName, conn.UserID(), conn, EventRoomCreated)
	if err != nil {
		return nil, nil, err
	}
	e.Rooms.AddRoom(room)
	if err := e.Sessions.Bind(conn.ID(), room.ID, p.ID); err != nil {
		room.RemovePlayer(p.ID)
		return nil, nil, err
	}
	e.logger.WithFields(logrus.Fields{"room_id": room.ID, "conn_id": conn.ID()}).Infof("room %q created", name)
	go e.publishRooms()
	return room, p, nil
}

// JoinRoom adds the caller to an existing room.
func (e *Engine) JoinRoom(conn Conn, roomID uuid.UUID, playerName string) (*Player, error) {
	if _, inRoom := e.Sessions.Lookup(conn.ID()); inRoom {
		return nil, ErrAlreadyInRoom
	}
	room, ok := e.Rooms.GetRoom(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	p, err := room.Join(playerName, conn.UserID(), conn, EventJoinedRoom)
	if err != nil {
		return nil, err
	}
	if err := e.Sessions.Bind(conn.ID(), room.ID, p.ID); err != nil {
		room.RemovePlayer(p.ID)
		return nil, err
	}
	go e.publishRooms()
	return p, nil
}

// roomFor resolves a room the connection is a member of.
func (e *Engine) roomFor(conn Conn, roomID uuid.UUID) (*Room, Session, error) {
	room, ok := e.Rooms.GetRoom(roomID)
	if !ok {
		return nil, Session{}, ErrRoomNotFound
	}
	sess, ok := e.Sessions.Lookup(conn.ID())
	if !ok || sess.RoomID != roomID {
		return nil, Session{}, ErrNotInRoom
	}
	return room, sess, nil
}

// StartGame starts the room's game on behalf of the connection's player.
func (e *Engine) StartGame(conn Conn, roomID uuid.UUID) error {
	room, sess, err := e.roomFor(conn, roomID)
	if err != nil {
		return err
	}
	return room.Start(sess.PlayerID)
}

// MarkCell toggles a cell. A connection may only mark its own card.
func (e *Engine) MarkCell(conn Conn, roomID, playerID uuid.UUID, row, col int) error {
	room, sess, err := e.roomFor(conn, roomID)
	if err != nil {
		return err
	}
	if playerID != uuid.Nil && playerID != sess.PlayerID {
		return ErrPlayerNotFound
	}
	return room.Mark(sess.PlayerID, row, col)
}

// SendChat posts a chat message. An empty playerRef means the connection's own
// player.
func (e *Engine) SendChat(conn Conn, roomID uuid.UUID, playerRef, text string) error {
	room, sess, err := e.roomFor(conn, roomID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(playerRef) == "" {
		playerRef = sess.PlayerID.String()
	}
	_, err = room.Chat(playerRef, text)
	return err
}

// ListRooms returns the rooms a newcomer could join.
func (e *Engine) ListRooms() []RoomSummary {
	out := make([]RoomSummary, 0)
	for _, r := range e.Rooms.Rooms() {
		if s, joinable := r.Summary(); joinable {
			out = append(out, s)
		}
	}
	return out
}

// publishRooms pushes the current listing to every connection not in a room.
func (e *Engine) publishRooms() {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	idle := e.Sessions.Idle()
	if len(idle) == 0 {
		return
	}
	ev := Event{Type: EventRoomsAvailable, Payload: RoomsAvailablePayload{Rooms: e.ListRooms()}}
	for _, c := range idle {
		c.Send(ev)
	}
}

// Shutdown closes every room and stops their draw schedulers.
func (e *Engine) Shutdown() {
	for _, r := range e.Rooms.Rooms() {
		r.Close()
		e.Rooms.DeleteRoom(r.ID)
	}
	e.logger.Info("engine shut down")
}
