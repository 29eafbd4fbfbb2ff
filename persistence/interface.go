// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/guessgame/models"
)

// Database 数据库接口
type Database interface {
	SavePlayerData(userID int64, data interface{}) error
	LoadPlayerData(userID int64, result interface{}) error
	// RecordOutcomes 一局结束后原子更新所有参与者的统计
	RecordOutcomes(roomID string, outcomes []models.PlayerOutcome) error
	GetPlayerStats(userID int64) (models.PlayerStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
