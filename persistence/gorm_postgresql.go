// persistence/gorm_postgresql.go
package persistence

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/guessgame/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormPlayer{}, &GameRecordModel{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// GameRecordModel 对局记录
type GameRecordModel struct {
	ID        uint   `gorm:"primaryKey"`
	RoomID    string `gorm:"index;not null"`
	Outcomes  string `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
}

// SavePlayerData 保存玩家数据
func (p *GormPostgreSQL) SavePlayerData(userID int64, data interface{}) error {
	playerData, ok := data.(map[string]interface{})
	if !ok {
		return fmt.Errorf("invalid player data type")
	}

	var player models.GormPlayer
	result := p.db.Where("user_id = ?", userID).First(&player)

	if result.Error == gorm.ErrRecordNotFound {
		player = models.GormPlayer{
			UserID: userID,
			Data:   playerData,
		}
		return p.db.Create(&player).Error
	} else if result.Error != nil {
		return result.Error
	}

	player.Data = playerData
	return p.db.Save(&player).Error
}

// LoadPlayerData 加载玩家数据
func (p *GormPostgreSQL) LoadPlayerData(userID int64, result interface{}) error {
	var player models.GormPlayer
	if err := p.db.Where("user_id = ?", userID).First(&player).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrRecordNotFound
		}
		return err
	}

	data, ok := result.(*map[string]interface{})
	if !ok {
		return fmt.Errorf("invalid result type")
	}
	*data = player.Data
	return nil
}

// RecordOutcomes 落盘对局记录并累加每个参与者的统计。
// 整个更新在一个事务里，任何一步失败全部回滚。
func (p *GormPostgreSQL) RecordOutcomes(roomID string, outcomes []models.PlayerOutcome) error {
	encoded, err := json.Marshal(outcomes)
	if err != nil {
		return err
	}

	return p.db.Transaction(func(tx *gorm.DB) error {
		record := GameRecordModel{
			RoomID:   roomID,
			Outcomes: string(encoded),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		for _, outcome := range outcomes {
			if outcome.UserID == 0 {
				// 匿名会话没有落盘身份，跳过
				continue
			}
			if err := applyOutcome(tx, outcome); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyOutcome(tx *gorm.DB, outcome models.PlayerOutcome) error {
	var player models.GormPlayer
	err := tx.Where("user_id = ?", outcome.UserID).First(&player).Error
	if err == gorm.ErrRecordNotFound {
		player = models.GormPlayer{
			UserID: outcome.UserID,
			Name:   outcome.Name,
			Stats:  map[string]interface{}{},
		}
		if err := tx.Create(&player).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	stats := decodeStats(player.Stats)
	stats.TotalGames++
	stats.Points += outcome.Points
	switch outcome.Kind {
	case models.ResultWinner:
		stats.Wins++
	case models.ResultLose:
		stats.Losses++
	case models.ResultTie:
		stats.Ties++
	case models.ResultDraw:
		stats.Draws++
	}

	return tx.Model(&player).Updates(map[string]interface{}{
		"name":  outcome.Name,
		"stats": encodeStats(stats),
	}).Error
}

// GetPlayerStats 获取玩家统计信息
func (p *GormPostgreSQL) GetPlayerStats(userID int64) (models.PlayerStats, error) {
	var player models.GormPlayer
	if err := p.db.Where("user_id = ?", userID).First(&player).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.PlayerStats{}, ErrRecordNotFound
		}
		return models.PlayerStats{}, err
	}
	return decodeStats(player.Stats), nil
}

// Transaction 暴露事务给需要多步操作的调用方
func (p *GormPostgreSQL) Transaction(fn func(tx *gorm.DB) error) error {
	return p.db.Transaction(fn)
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func decodeStats(raw map[string]interface{}) models.PlayerStats {
	var stats models.PlayerStats
	if raw == nil {
		return stats
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return stats
	}
	_ = json.Unmarshal(encoded, &stats)
	return stats
}

func encodeStats(stats models.PlayerStats) map[string]interface{} {
	return map[string]interface{}{
		"total_games": stats.TotalGames,
		"wins":        stats.Wins,
		"losses":      stats.Losses,
		"ties":        stats.Ties,
		"draws":       stats.Draws,
		"points":      stats.Points,
	}
}
