// internal/handlers/room_ws_test.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/auth"
	"github.com/jason-s-yu/bingo/internal/game"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func newTestServer(t *testing.T) (*httptest.Server, *GameServer) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	engine := game.NewEngine(game.Config{DrawInterval: time.Hour}, game.Deps{Logger: logger})
	gs := NewGameServer(engine, logger)
	srv := httptest.NewServer(gs.Routes())
	t.Cleanup(func() {
		srv.Close()
		engine.Shutdown()
	})
	return srv, gs
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *testClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
		HTTPHeader:   header,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return &testClient{t: t, conn: c}
}

func (tc *testClient) send(msg map[string]interface{}) {
	tc.t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(tc.t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(tc.t, tc.conn.Write(ctx, websocket.MessageText, data))
}

// expect reads until an event of the given type arrives and decodes its payload.
func (tc *testClient) expect(typ game.EventType, payload interface{}) {
	tc.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		_, data, err := tc.conn.Read(ctx)
		require.NoError(tc.t, err, "waiting for %s", typ)
		var ev wireEvent
		require.NoError(tc.t, json.Unmarshal(data, &ev))
		if ev.Type != string(typ) {
			continue
		}
		if payload != nil {
			require.NoError(tc.t, json.Unmarshal(ev.Payload, payload))
		}
		return
	}
}

func (tc *testClient) expectError(contains string) {
	tc.t.Helper()
	var p game.ErrorPayload
	tc.expect(game.EventError, &p)
	assert.Contains(tc.t, p.Message, contains)
}

func TestRoomWebSocketFlow(t *testing.T) {
	srv, gs := newTestServer(t)

	ana := dial(t, srv, nil)
	var listing game.RoomsAvailablePayload
	ana.expect(game.EventRoomsAvailable, &listing)
	assert.Empty(t, listing.Rooms)

	ana.send(map[string]interface{}{"type": "createRoom", "name": "Sala", "playerName": "Ana"})
	var created game.RoomJoinPayload
	ana.expect(game.EventRoomCreated, &created)
	assert.Equal(t, "Sala", created.Room.Name)
	assert.True(t, created.Player.IsHost)
	require.NotNil(t, created.Player.Card)
	roomID := created.Room.ID.String()

	beto := dial(t, srv, nil)
	beto.send(map[string]interface{}{"type": "listRooms"})
	assert.Eventually(t, func() bool { return len(gs.Engine.ListRooms()) == 1 }, time.Second, 10*time.Millisecond)

	beto.send(map[string]interface{}{"type": "joinRoom", "roomId": roomID, "playerName": "ANA"})
	beto.expectError(game.ErrNameTaken.Error())

	beto.send(map[string]interface{}{"type": "joinRoom", "roomId": roomID, "playerName": "Beto"})
	beto.expect(game.EventJoinedRoom, nil)
	var joined game.PlayerJoinedPayload
	ana.expect(game.EventPlayerJoined, &joined)
	assert.Equal(t, "Beto", joined.Player.Name)
	assert.Equal(t, 2, joined.TotalPlayers)

	beto.send(map[string]interface{}{"type": "startGame", "roomId": roomID})
	beto.expectError(game.ErrNotHost.Error())

	ana.send(map[string]interface{}{"type": "startGame", "roomId": roomID})
	var started game.GameStartedPayload
	ana.expect(game.EventGameStarted, &started)
	assert.Equal(t, 2, started.PlayerCount)
	beto.expect(game.EventGameStarted, nil)

	ana.send(map[string]interface{}{"type": "markCell", "roomId": roomID, "row": 9, "col": 0})
	ana.expectError(game.ErrOutOfRange.Error())

	ana.send(map[string]interface{}{"type": "markCell", "roomId": roomID, "row": 0, "col": 0})
	var marked game.CellMarkedPayload
	ana.expect(game.EventCellMarked, &marked)
	assert.True(t, marked.Marked)

	ana.send(map[string]interface{}{"type": "sendChat", "roomId": roomID, "text": "  hola  "})
	var chat game.ChatMessage
	beto.expect(game.EventNewChatMessage, &chat)
	assert.Equal(t, "Ana", chat.PlayerName)
	assert.Equal(t, "hola", chat.Text)

	ana.send(map[string]interface{}{"type": "ping"})
	ana.expect(game.EventPong, nil)

	ana.send(map[string]interface{}{"type": "dance"})
	ana.expectError("unknown message type")

	beto.send(map[string]interface{}{"type": "leaveRoom"})
	var left game.PlayerLeftPayload
	ana.expect(game.EventPlayerLeft, &left)
	assert.Equal(t, "Beto", left.PlayerName)
	assert.Equal(t, 1, left.TotalPlayers)
}

func TestRoomWebSocketRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)
	c := dial(t, srv, nil)
	c.expect(game.EventRoomsAvailable, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.conn.Write(ctx, websocket.MessageText, []byte("{not json")))
	c.expectError(errInvalidJSON.Error())

	c.send(map[string]interface{}{"type": "joinRoom", "roomId": "nope", "playerName": "Ana"})
	c.expectError(game.ErrRoomNotFound.Error())

	c.send(map[string]interface{}{"type": "createRoom", "name": "", "playerName": "Ana"})
	c.expectError(game.ErrInvalidName.Error())

	c.send(map[string]interface{}{"type": "createRoom", "name": "Sala", "playerName": "Ana", "mode": "bogus"})
	c.expectError(game.ErrUnknownMode.Error())
}

func TestRoomWebSocketDisconnectDeletesRoom(t *testing.T) {
	srv, gs := newTestServer(t)
	c := dial(t, srv, nil)
	c.send(map[string]interface{}{"type": "createRoom", "name": "Sala", "playerName": "Ana"})
	c.expect(game.EventRoomCreated, nil)
	require.Equal(t, 1, gs.Engine.Rooms.Len())

	c.conn.Close(websocket.StatusNormalClosure, "bye")
	assert.Eventually(t, func() bool { return gs.Engine.Rooms.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return gs.Engine.Sessions.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRoomWebSocketRequiresSubprotocol(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	_, _, err = c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, BadSubprotocolError, websocket.CloseStatus(err))
}

func TestRoomWebSocketRejectsBadToken(t *testing.T) {
	require.NoError(t, auth.Init(time.Hour))
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
		HTTPHeader:   http.Header{"Authorization": []string{"Bearer not-a-token"}},
	})
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	_, _, err = c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, InvalidAuthTokenError, websocket.CloseStatus(err))
}

func TestRoomWebSocketAcceptsValidToken(t *testing.T) {
	require.NoError(t, auth.Init(time.Hour))
	srv, gs := newTestServer(t)

	token, err := auth.CreateJWT(uuid.New(), "ana")
	require.NoError(t, err)
	c := dial(t, srv, http.Header{"Authorization": []string{"Bearer " + token}})
	c.expect(game.EventRoomsAvailable, nil)
	assert.Equal(t, 1, gs.Engine.Sessions.Len())
}
