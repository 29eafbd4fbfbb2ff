// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormPlayer 玩家模型
type GormPlayer struct {
	gorm.Model
	UserID int64                  `gorm:"uniqueIndex;not null"`
	Name   string                 `gorm:"not null"`
	Data   map[string]interface{} `gorm:"type:jsonb"`
	Stats  map[string]interface{} `gorm:"type:jsonb"`
}

// PlayerStats 玩家统计信息
type PlayerStats struct {
	TotalGames int `json:"total_games"`
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
	Ties       int `json:"ties"`
	Draws      int `json:"draws"`
	Points     int `json:"points"` // 累计答对次数
}
