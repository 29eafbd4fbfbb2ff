package room

import (
	"github.com/wfunc/guessgame/models"
)

// Broadcaster defines the interface for delivering events to players.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
	SendToSession(sessionID string, msgID uint16, data []byte) error
}

// GameRecorder 终局时记录玩家战绩，可为nil（不落库）
type GameRecorder interface {
	RecordGameEnd(roomID string, outcomes []models.PlayerOutcome)
}
