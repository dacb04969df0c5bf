// internal/game/events.go
package game

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an outbound message.
type EventType string

const (
	EventRoomCreated       EventType = "roomCreated"
	EventJoinedRoom        EventType = "joinedRoom"
	EventPlayerJoined      EventType = "playerJoined"
	EventPlayerLeft        EventType = "playerLeft"
	EventGameStarted       EventType = "gameStarted"
	EventNumberDrawn       EventType = "numberDrawn"
	EventWinAchieved       EventType = "winAchieved"
	EventPlayerUpdated     EventType = "playerUpdated"
	EventNewChatMessage    EventType = "newChatMessage"
	EventRoomsAvailable    EventType = "roomsAvailable"
	EventError             EventType = "error"
	EventCellMarked        EventType = "cellMarked"        // private
	EventGameFinished      EventType = "gameFinished"      // public
	EventExperienceAwarded EventType = "experienceAwarded" // private
	EventPong              EventType = "pong"
)

// Event is the envelope every outbound message is wrapped in.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// PlayerView is the public part of a player.
type PlayerView struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	IsHost             bool      `json:"isHost"`
	Score              int       `json:"score"`
	CompletedLineCount int       `json:"completedLineCount"`
}

// SelfView is what a player sees of themselves, card included.
type SelfView struct {
	PlayerView
	Card *Card `json:"card"`
}

// RoomView is a snapshot of a room safe to serialize outside the room lock.
type RoomView struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Mode          string        `json:"mode"`
	Players       []PlayerView  `json:"players"`
	DrawnNumbers  []int         `json:"drawnNumbers"`
	CurrentNumber int           `json:"currentNumber,omitempty"`
	Started       bool          `json:"started"`
	Finished      bool          `json:"finished"`
	Winners       []uuid.UUID   `json:"winners"`
	ChatLog       []ChatMessage `json:"chatLog"`
	CreatedAt     time.Time     `json:"createdAt"`
	GameStartedAt *time.Time    `json:"gameStartedAt,omitempty"`
}

// RoomSummary is one entry of the room listing.
type RoomSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Mode        string    `json:"mode"`
	PlayerCount int       `json:"playerCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ChatMessage is an entry of a room's chat log.
type ChatMessage struct {
	ID         uuid.UUID `json:"id"`
	PlayerID   uuid.UUID `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

// --- Payloads ---

type RoomJoinPayload struct {
	Room   RoomView `json:"room"`
	Player SelfView `json:"player"`
}

type PlayerJoinedPayload struct {
	Player       PlayerView `json:"player"`
	TotalPlayers int        `json:"totalPlayers"`
}

type PlayerLeftPayload struct {
	PlayerName   string `json:"playerName"`
	TotalPlayers int    `json:"totalPlayers"`
}

type GameStartedPayload struct {
	PlayerCount int       `json:"playerCount"`
	StartedAt   time.Time `json:"startedAt"`
}

type NumberDrawnPayload struct {
	Number       int   `json:"number"`
	DrawnNumbers []int `json:"drawnNumbers"`
	TotalDrawn   int   `json:"totalDrawn"`
}

type WinAchievedPayload struct {
	PlayerName string   `json:"playerName"`
	Tier       Tier     `json:"tier"`
	Lines      int      `json:"lines"`
	Pattern    *Pattern `json:"pattern,omitempty"`
}

type PlayerUpdatedPayload struct {
	PlayerID           uuid.UUID `json:"playerId"`
	Score              int       `json:"score"`
	CompletedLineCount int       `json:"completedLineCount"`
}

type CellMarkedPayload struct {
	Row    int  `json:"row"`
	Col    int  `json:"col"`
	Marked bool `json:"marked"`
}

type RoomsAvailablePayload struct {
	Rooms []RoomSummary `json:"rooms"`
}

type GameFinishedPayload struct {
	Winners    []string      `json:"winners"`
	Duration   time.Duration `json:"duration"`
	TotalDrawn int           `json:"totalDrawn"`
}

type ExperienceAwardedPayload struct {
	Tier       Tier `json:"tier"`
	Amount     int  `json:"amount"`
	Experience int  `json:"experience"`
	Level      int  `json:"level"`
	LeveledUp  bool `json:"leveledUp"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// ErrorEvent wraps err for the originating connection.
func ErrorEvent(err error) Event {
	return Event{Type: EventError, Payload: ErrorPayload{Message: err.Error()}}
}
