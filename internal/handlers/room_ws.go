// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/auth"
	"github.com/jason-s-yu/bingo/internal/game"
	"github.com/jason-s-yu/bingo/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the WebSocket subprotocol clients must request.
const Subprotocol = "bingo"

const (
	outboxSize   = 64
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
)

var errInvalidJSON = errors.New("invalid JSON format")

// wsConnection adapts a WebSocket to game.Conn. Send never blocks: events are
// queued on OutChan and written by the write pump.
type wsConnection struct {
	id     uuid.UUID
	userID uuid.UUID

	OutChan chan []byte

	mu     sync.Mutex
	closed bool
	logger *logrus.Entry
}

func newWSConnection(userID uuid.UUID, logger *logrus.Logger) *wsConnection {
	id := uuid.New()
	return &wsConnection{
		id:      id,
		userID:  userID,
		OutChan: make(chan []byte, outboxSize),
		logger:  logger.WithFields(logrus.Fields{"conn_id": id, "user_id": userID}),
	}
}

func (c *wsConnection) ID() uuid.UUID     { return c.id }
func (c *wsConnection) UserID() uuid.UUID { return c.userID }

func (c *wsConnection) Send(ev game.Event) {
	data := game.MarshalEvent(ev)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.OutChan <- data:
	default:
		c.logger.Warnf("outbox full, dropping %s event", ev.Type)
	}
}

// close stops further sends and ends the write pump.
func (c *wsConnection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.OutChan)
	}
}

// inboundMessage is the flat envelope every client message uses.
type inboundMessage struct {
	Type       string `json:"type"`
	RoomID     string `json:"roomId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Name       string `json:"name"`
	Mode       string `json:"mode"`
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	Text       string `json:"text"`
}

// RoomWSHandler serves the room protocol at /ws. A valid auth token makes the
// connection's players authenticated; without one they play as guests.
func RoomWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the bingo subprotocol")
			return
		}

		userID := uuid.Nil
		if token := auth.TokenFromRequest(r); token != "" {
			claims, err := auth.AuthenticateJWT(token)
			if err != nil {
				logger.Warnf("ws auth failed for %s: %v", remoteAddr, err)
				c.Close(InvalidAuthTokenError, "invalid auth token")
				return
			}
			if userID, err = claims.UserID(); err != nil {
				c.Close(InvalidUserIDError, "invalid user id in token")
				return
			}
		}

		middleware.LogWebSocketConnect(logger, remoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := newWSConnection(userID, logger)
		gs.Engine.Connect(conn)
		conn.Send(game.Event{
			Type:    game.EventRoomsAvailable,
			Payload: game.RoomsAvailablePayload{Rooms: gs.Engine.ListRooms()},
		})

		go writePump(ctx, c, conn)

		readErr := readPump(ctx, c, gs.Engine, conn)

		gs.Engine.Disconnect(conn)
		conn.close()
		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, readErr)
	}
}

// readPump reads client messages until the socket closes, dispatching each to
// the engine. It returns the read error for anything but a normal closure.
func readPump(ctx context.Context, c *websocket.Conn, engine *game.Engine, conn *wsConnection) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			conn.logger.Warnf("ignoring non-text message type %d", typ)
			continue
		}

		msg := inboundMessage{Row: -1, Col: -1}
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.logger.Debugf("invalid json: %v", err)
			conn.Send(game.ErrorEvent(errInvalidJSON))
			continue
		}

		if err := handleRoomMessage(engine, conn, msg); err != nil {
			conn.logger.WithField("type", msg.Type).Debugf("request rejected: %v", err)
			conn.Send(game.ErrorEvent(err))
		}
	}
}

// handleRoomMessage interprets the "type" field. Returned errors go back to the
// sender as error events.
func handleRoomMessage(engine *game.Engine, conn *wsConnection, msg inboundMessage) error {
	switch msg.Type {
	case "createRoom":
		_, _, err := engine.CreateRoom(conn, msg.Name, msg.PlayerName, msg.Mode)
		return err
	case "joinRoom":
		roomID, err := parseRoomID(msg.RoomID)
		if err != nil {
			return err
		}
		_, err = engine.JoinRoom(conn, roomID, msg.PlayerName)
		return err
	case "startGame":
		roomID, err := parseRoomID(msg.RoomID)
		if err != nil {
			return err
		}
		return engine.StartGame(conn, roomID)
	case "markCell":
		roomID, err := parseRoomID(msg.RoomID)
		if err != nil {
			return err
		}
		playerID := uuid.Nil
		if strings.TrimSpace(msg.PlayerID) != "" {
			if playerID, err = uuid.Parse(msg.PlayerID); err != nil {
				return game.ErrPlayerNotFound
			}
		}
		return engine.MarkCell(conn, roomID, playerID, msg.Row, msg.Col)
	case "sendChat":
		roomID, err := parseRoomID(msg.RoomID)
		if err != nil {
			return err
		}
		ref := msg.PlayerID
		if ref == "" {
			ref = msg.PlayerName
		}
		return engine.SendChat(conn, roomID, ref, msg.Text)
	case "listRooms":
		conn.Send(game.Event{
			Type:    game.EventRoomsAvailable,
			Payload: game.RoomsAvailablePayload{Rooms: engine.ListRooms()},
		})
		return nil
	case "leaveRoom":
		engine.Leave(conn.ID())
		return nil
	case "ping":
		conn.Send(game.Event{Type: game.EventPong})
		return nil
	default:
		return fmt.Errorf("unknown message type: %q", msg.Type)
	}
}

func parseRoomID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, game.ErrRoomNotFound
	}
	return id, nil
}

// writePump drains the connection's outbox to the socket and keeps it alive
// with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *wsConnection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-conn.OutChan:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				conn.logger.Warnf("write failed: %v", err)
				c.Close(websocket.StatusInternalError, "write failed")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				conn.logger.Debugf("ping failed: %v", err)
				c.Close(websocket.StatusGoingAway, "ping failed")
				return
			}
		}
	}
}
