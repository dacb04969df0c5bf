// internal/game/utils.go
package game

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// MarshalEvent encodes an Event for the wire.
// Logs a warning and returns "{}" on marshalling error.
func MarshalEvent(ev Event) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.Warnf("failed to marshal event %s: %v", ev.Type, err)
		return []byte("{}")
	}
	return data
}
