// internal/handlers/game_server.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/bingo/internal/game"
	"github.com/jason-s-yu/bingo/internal/middleware"
	"github.com/sirupsen/logrus"
)

// GameServer is the HTTP-facing wrapper around the room engine. Handlers reach
// rooms and sessions through it.
type GameServer struct {
	Engine *game.Engine
	Logger *logrus.Logger
}

func NewGameServer(engine *game.Engine, logger *logrus.Logger) *GameServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GameServer{
		Engine: engine,
		Logger: logger,
	}
}

// Routes builds the server's mux, every route wrapped in request logging.
func (gs *GameServer) Routes() http.Handler {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(gs.Logger)

	// user endpoints
	mux.Handle("/user/create", logged(http.HandlerFunc(CreateUserHandler)))
	mux.Handle("/user/login", logged(http.HandlerFunc(LoginHandler)))
	mux.Handle("/user/me", logged(http.HandlerFunc(MeHandler)))

	// room endpoints
	mux.Handle("/rooms", logged(ListRoomsHandler(gs)))
	mux.Handle("/ws", logged(RoomWSHandler(gs.Logger, gs)))

	mux.Handle("/healthz", HealthHandler(gs))
	return mux
}
