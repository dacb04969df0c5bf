// internal/handlers/rooms_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/auth"
	"github.com/jason-s-yu/bingo/internal/game"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConn struct {
	id uuid.UUID
}

func (c *stubConn) ID() uuid.UUID      { return c.id }
func (c *stubConn) UserID() uuid.UUID  { return uuid.Nil }
func (c *stubConn) Send(ev game.Event) {}

func newGameServer(t *testing.T) *GameServer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	engine := game.NewEngine(game.Config{DrawInterval: time.Hour}, game.Deps{Logger: logger})
	t.Cleanup(engine.Shutdown)
	return NewGameServer(engine, logger)
}

func TestListRoomsHandler(t *testing.T) {
	gs := newGameServer(t)

	host := &stubConn{id: uuid.New()}
	gs.Engine.Connect(host)
	room, _, err := gs.Engine.CreateRoom(host, "Sala", "Ana", "tiered")
	require.NoError(t, err)

	started := &stubConn{id: uuid.New()}
	gs.Engine.Connect(started)
	other, _, err := gs.Engine.CreateRoom(started, "Jugando", "Beto", "")
	require.NoError(t, err)
	require.NoError(t, gs.Engine.StartGame(started, other.ID))

	w := httptest.NewRecorder()
	ListRoomsHandler(gs).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rooms", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp roomsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Rooms, 1, "rooms with a game in progress are not listed")
	assert.Equal(t, room.ID, resp.Rooms[0].ID)
	assert.Equal(t, "Sala", resp.Rooms[0].Name)
	assert.Equal(t, game.ModeTiered90, resp.Rooms[0].Mode)
	assert.Equal(t, 1, resp.Rooms[0].PlayerCount)
}

func TestListRoomsHandlerMethod(t *testing.T) {
	gs := newGameServer(t)
	w := httptest.NewRecorder()
	ListRoomsHandler(gs).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rooms", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthHandler(t *testing.T) {
	gs := newGameServer(t)
	gs.Engine.Connect(&stubConn{id: uuid.New()})

	w := httptest.NewRecorder()
	HealthHandler(gs).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Rooms)
	assert.Equal(t, 1, resp.Connections)
}

func TestUserHandlersWithoutDatabase(t *testing.T) {
	body := `{"email":"ana@example.com","password":"secreto","username":"ana"}`

	w := httptest.NewRecorder()
	CreateUserHandler(w, httptest.NewRequest(http.MethodPost, "/user/create", bytes.NewBufferString(body)))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	CreateUserHandler(w, httptest.NewRequest(http.MethodPost, "/user/create", bytes.NewBufferString(`{"email":""}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	LoginHandler(w, httptest.NewRequest(http.MethodPost, "/user/login", bytes.NewBufferString(body)))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	LoginHandler(w, httptest.NewRequest(http.MethodGet, "/user/login", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestMeHandlerRequiresToken(t *testing.T) {
	w := httptest.NewRecorder()
	MeHandler(w, httptest.NewRequest(http.MethodGet, "/user/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	require.NoError(t, auth.Init(time.Hour))
	token, err := auth.CreateJWT(uuid.New(), "ana")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
	req.AddCookie(auth.SessionCookie(token))

	w = httptest.NewRecorder()
	MeHandler(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
