package spectate

import (
	"time"

	"github.com/lox/ohhell/internal/game"
)

// MessageTypeSnapshot is sent once when a spectator connects. Every other
// message carries the type of the engine event that produced it.
const MessageTypeSnapshot = "snapshot"

// Message is one frame of the spectator feed. Each frame carries the whole
// state, so a client never has to replay earlier frames.
type Message struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Snapshot  game.GameState `json:"snapshot"`
}

func eventMessage(ev game.Event) Message {
	return Message{
		Type:      ev.Type().String(),
		Timestamp: ev.Timestamp(),
		Snapshot:  ev.Snapshot(),
	}
}
