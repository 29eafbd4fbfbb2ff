// models/models.go
package models

// ResultKind 终局结果类型
type ResultKind string

const (
	ResultWinner ResultKind = "winner"
	ResultLose   ResultKind = "lose"
	ResultTie    ResultKind = "tie"
	ResultDraw   ResultKind = "draw"
)

// --- 客户端 -> 服务端 ---

// UserID 是客户端自报的落盘身份，0 表示匿名（不记统计）
type JoinRoomRequest struct {
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
	UserID     int64  `json:"user_id"`
}

type CreateRoomRequest struct {
	PlayerName string `json:"player_name"`
	UserID     int64  `json:"user_id"`
}

type GuessRequest struct {
	Guess int `json:"guess"`
}

// --- 服务端 -> 客户端 ---

type RoomStateEvent struct {
	RoomID  string       `json:"room_id"`
	Status  string       `json:"status"`
	Round   int          `json:"round"`
	Players []PlayerSeat `json:"players"`
}

type PlayerSeat struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

type RoundStartedEvent struct {
	Round    int `json:"round"`
	TimeLeft int `json:"time_left"`
}

type TimerUpdateEvent struct {
	TimeLeft int `json:"time_left"`
}

type CorrectGuessEvent struct {
	PlayerID     string `json:"player_id"`
	PlayerName   string `json:"player_name"`
	TargetNumber int    `json:"target_number"`
	Guess        int    `json:"guess"`
}

// WrongGuessEvent 仅单播给猜错的玩家本人
type WrongGuessEvent struct {
	Guess        int    `json:"guess"`
	TargetNumber int    `json:"target_number"`
	Message      string `json:"message"`
}

// PlayerGuessedEvent 匿名化广播，不携带猜测值
type PlayerGuessedEvent struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	HasGuessed bool   `json:"has_guessed"`
}

type AllPlayersGuessedEvent struct {
	Message      string `json:"message"`
	TargetNumber int    `json:"target_number"`
}

type PlayersTimeoutEvent struct {
	Players      []string `json:"players"`
	TargetNumber int      `json:"target_number"`
}

type RoundEndEvent struct {
	Round  int            `json:"round"`
	Scores map[string]int `json:"scores"`
	Winner string         `json:"winner,omitempty"`
}

type GameEndEvent struct {
	Result      GameResult     `json:"result"`
	FinalScores map[string]int `json:"final_scores"`
}

type GameResult struct {
	Kind    ResultKind `json:"kind"`
	Message string     `json:"message"`
	Winner  string     `json:"winner,omitempty"`
}

type HintEvent struct {
	Round   int    `json:"round"`
	Message string `json:"message"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NoticeEvent 运维通过管理接口下发的公告
type NoticeEvent struct {
	Message string `json:"message"`
}

// PlayerOutcome 单局结束后写入玩家统计的结果
type PlayerOutcome struct {
	UserID int64      `json:"user_id"`
	Name   string     `json:"name"`
	Kind   ResultKind `json:"kind"`
	Points int        `json:"points"`
}
