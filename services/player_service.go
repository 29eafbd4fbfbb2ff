// services/player_service.go
package services

import (
	"github.com/wfunc/guessgame/logger"
	"github.com/wfunc/guessgame/models"
	"github.com/wfunc/guessgame/persistence"
)

type PlayerService struct {
	db persistence.Database
}

func NewPlayerService(db persistence.Database) *PlayerService {
	return &PlayerService{db: db}
}

// RecordGameEnd 一局结束后落盘结果和统计。
// 存储失败只记日志，不影响对局流程。
func (s *PlayerService) RecordGameEnd(roomID string, outcomes []models.PlayerOutcome) {
	if err := s.db.RecordOutcomes(roomID, outcomes); err != nil {
		logger.Log.Errorf("Failed to record game end for room %s: %v", roomID, err)
	}
}

// GetPlayerWithStats 获取玩家信息和统计
func (s *PlayerService) GetPlayerWithStats(userID int64) (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := s.db.LoadPlayerData(userID, &data); err != nil && err != persistence.ErrRecordNotFound {
		return nil, err
	}

	stats, err := s.db.GetPlayerStats(userID)
	if err != nil {
		if err == persistence.ErrRecordNotFound {
			return map[string]interface{}{
				"player": data,
				"stats":  models.PlayerStats{},
			}, nil
		}
		return nil, err
	}

	return map[string]interface{}{
		"player": data,
		"stats":  stats,
	}, nil
}
