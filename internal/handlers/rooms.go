// internal/handlers/rooms.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/bingo/internal/game"
)

type roomsResponse struct {
	Rooms []game.RoomSummary `json:"rooms"`
}

// ListRoomsHandler returns the joinable rooms, the same listing pushed to idle
// WebSocket connections.
func ListRoomsHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, roomsResponse{Rooms: gs.Engine.ListRooms()})
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
}

// HealthHandler reports liveness with a few engine counters.
func HealthHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:      "ok",
			Rooms:       gs.Engine.Rooms.Len(),
			Connections: gs.Engine.Sessions.Len(),
		})
	}
}
