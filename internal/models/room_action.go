package models

import "github.com/google/uuid"

// RoomAction is a single entry of a room's action log. Records are pushed onto a
// Redis list by the server and persisted in batches by the historian.
type RoomAction struct {
	RoomID        uuid.UUID              `json:"room_id"`
	GameID        uuid.UUID              `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorPlayerID uuid.UUID              `json:"actor_player_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"` // epoch millis
}
