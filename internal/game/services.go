// internal/game/services.go
package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/models"
	"github.com/sirupsen/logrus"
)

// Conn is the outbound side of a client connection. Send must not block and
// must be safe to call from any goroutine.
type Conn interface {
	ID() uuid.UUID
	// UserID is the authenticated user behind the connection, uuid.Nil for guests.
	UserID() uuid.UUID
	Send(ev Event)
}

// LevelService credits experience to registered users.
type LevelService interface {
	AwardExperience(ctx context.Context, userID uuid.UUID, tier string, amount int) (models.LevelInfo, error)
}

// ResultRecorder persists finished games.
type ResultRecorder interface {
	RecordGameResult(ctx context.Context, result models.GameResult) error
}

// ActionPublisher ships room actions to the historian queue.
type ActionPublisher interface {
	PublishRoomAction(ctx context.Context, action models.RoomAction) error
}

// Deps are the collaborators shared by every room. Nil services are skipped.
type Deps struct {
	Levels  LevelService
	Results ResultRecorder
	Actions ActionPublisher
	Logger  *logrus.Logger
}

func (d Deps) logger() *logrus.Logger {
	if d.Logger == nil {
		return logrus.StandardLogger()
	}
	return d.Logger
}
