// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/guessgame/models"
)

// PostgreSQL 基于 database/sql 的实现，不经过 ORM
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS players (
            id SERIAL PRIMARY KEY,
            user_id BIGINT UNIQUE NOT NULL,
            name VARCHAR(255) NOT NULL DEFAULT '',
            data JSONB NOT NULL DEFAULT '{}',
            stats JSONB NOT NULL DEFAULT '{}',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS game_record_models (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) NOT NULL,
            outcomes JSONB NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_players_user_id ON players(user_id);
        CREATE INDEX IF NOT EXISTS idx_game_record_models_room_id ON game_record_models(room_id);
    `)

	return err
}

// SavePlayerData 保存玩家数据
func (p *PostgreSQL) SavePlayerData(userID int64, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO players (user_id, data)
        VALUES ($1, $2)
        ON CONFLICT (user_id)
        DO UPDATE SET data = $2, updated_at = CURRENT_TIMESTAMP
    `

	_, err = p.db.ExecContext(ctx, query, userID, jsonData)
	return err
}

// LoadPlayerData 加载玩家数据
func (p *PostgreSQL) LoadPlayerData(userID int64, result interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var data []byte
	query := `SELECT data FROM players WHERE user_id = $1`
	err := p.db.QueryRowContext(ctx, query, userID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrRecordNotFound
		}
		return err
	}

	return json.Unmarshal(data, result)
}

// RecordOutcomes 落盘对局记录并累加玩家统计，整体在一个事务内
func (p *PostgreSQL) RecordOutcomes(roomID string, outcomes []models.PlayerOutcome) error {
	encoded, err := json.Marshal(outcomes)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO game_record_models (room_id, outcomes) VALUES ($1, $2)`,
		roomID, encoded); err != nil {
		return err
	}

	for _, outcome := range outcomes {
		if outcome.UserID == 0 {
			continue
		}

		var column string
		switch outcome.Kind {
		case models.ResultWinner:
			column = "wins"
		case models.ResultLose:
			column = "losses"
		case models.ResultTie:
			column = "ties"
		case models.ResultDraw:
			column = "draws"
		default:
			continue
		}

		query := fmt.Sprintf(`
            INSERT INTO players (user_id, name, stats)
            VALUES ($1, $2, jsonb_build_object('total_games', 1, '%s', 1, 'points', $3::int))
            ON CONFLICT (user_id) DO UPDATE SET
                name = $2,
                stats = jsonb_build_object(
                    'total_games', COALESCE((players.stats->>'total_games')::int, 0) + 1,
                    'wins',   COALESCE((players.stats->>'wins')::int, 0),
                    'losses', COALESCE((players.stats->>'losses')::int, 0),
                    'ties',   COALESCE((players.stats->>'ties')::int, 0),
                    'draws',  COALESCE((players.stats->>'draws')::int, 0),
                    'points', COALESCE((players.stats->>'points')::int, 0) + $3::int
                ) || jsonb_build_object('%s', COALESCE((players.stats->>'%s')::int, 0) + 1),
                updated_at = CURRENT_TIMESTAMP
        `, column, column, column)

		if _, err := tx.ExecContext(ctx, query, outcome.UserID, outcome.Name, outcome.Points); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetPlayerStats 获取玩家统计信息
func (p *PostgreSQL) GetPlayerStats(userID int64) (models.PlayerStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var data []byte
	query := `SELECT stats FROM players WHERE user_id = $1`
	err := p.db.QueryRowContext(ctx, query, userID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.PlayerStats{}, ErrRecordNotFound
		}
		return models.PlayerStats{}, err
	}

	var stats models.PlayerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return models.PlayerStats{}, err
	}
	return stats, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
