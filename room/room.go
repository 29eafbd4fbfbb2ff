// room/room.go
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/guessgame/hint"
	"github.com/wfunc/guessgame/logger"
	"github.com/wfunc/guessgame/models"
	"github.com/wfunc/guessgame/network"
	"github.com/wfunc/guessgame/session"
	"github.com/wfunc/guessgame/state"
	"github.com/wfunc/guessgame/timer"
)

// 对局规则常量，不做运行时配置
const (
	MaxPlayers    = 4
	MinPlayers    = 2
	MaxRounds     = 3
	RoundDuration = 25 // 秒
	TargetMin     = 1
	TargetMax     = 100

	GraceDelay     = 2 * time.Second // 回合揭晓后的停顿
	NextRoundDelay = 3 * time.Second // 回合之间的停顿
)

var (
	ErrRoomFull         = errors.New("room is full")
	ErrRoomClosed       = errors.New("room is closed")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
)

// Room 是猜数字对局的核心结构。所有状态迁移（猜测、计时tick、进出房间、
// 延时回调）都在 mu 之下执行，回合的胜负判定因此天然是先到先得。
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time

	mu      sync.Mutex
	machine *state.Machine
	players []*session.Session // 有序座位表
	scores  map[string]int     // playerID -> 累计得分
	guesses map[string]int     // playerID -> 本回合已提交的猜测

	currentRound  int
	targetNumber  int
	roundWinner   string // 为空表示本回合尚未分出胜负
	roundTimeLeft int
	tickTimerID   int64
	clockStopped  bool // 本回合的时钟是否已被取消

	timers      *timer.Manager
	broadcaster Broadcaster
	hints       hint.Provider
	recorder    GameRecorder
}

// NewRoom 创建一个新房间。hints 为 nil 时使用内置降级表，recorder 可为 nil。
func NewRoom(id, name string, timers *timer.Manager, broadcaster Broadcaster, hints hint.Provider, recorder GameRecorder) *Room {
	if hints == nil {
		hints = hint.StaticProvider{}
	}
	return &Room{
		ID:          id,
		Name:        name,
		CreatedAt:   time.Now(),
		machine:     state.NewMachine(),
		players:     make([]*session.Session, 0, MaxPlayers),
		scores:      make(map[string]int),
		guesses:     make(map[string]int),
		timers:      timers,
		broadcaster: broadcaster,
		hints:       hints,
		recorder:    recorder,
	}
}

// Status 获取房间的业务状态
func (r *Room) Status() state.Status {
	return r.machine.Current()
}

// PlayerCount returns the number of seated players.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Round returns the current round number, 0 before the game starts.
func (r *Room) Round() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentRound
}

// AddPlayer 添加一个玩家到房间，满员返回 ErrRoomFull
func (r *Room) AddPlayer(s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.machine.Is(state.StatusFinished) {
		return ErrRoomClosed
	}
	if len(r.players) >= MaxPlayers {
		return ErrRoomFull
	}

	r.players = append(r.players, s)
	r.scores[s.ID] = 0
	s.SetRoomID(r.ID)

	r.broadcastStateLocked()
	return nil
}

// RemovePlayer 从房间移除一个玩家。对局进行中只剩一人时，剩下的玩家
// 直接获胜（对手离开）；一个不剩时静默终止。
func (r *Room) RemovePlayer(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	r.players[idx].SetRoomID("")
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	delete(r.scores, playerID)
	delete(r.guesses, playerID)

	if !r.machine.Is(state.StatusPlaying) {
		if len(r.players) > 0 {
			r.broadcastStateLocked()
		}
		return
	}

	switch len(r.players) {
	case 1:
		r.stopClockLocked()
		r.finishLocked()

		winner := r.players[0]
		event := models.GameEndEvent{
			Result: models.GameResult{
				Kind:    models.ResultWinner,
				Message: "Your opponent left the game. You win!",
				Winner:  winner.ID,
			},
			FinalScores: r.copyScoresLocked(),
		}
		r.broadcast(network.MsgTypeGameEnd, event)
		// 弃权胜：不看比分，剩下的玩家按胜利记录
		r.record([]models.PlayerOutcome{{
			UserID: winner.UserID,
			Name:   winner.GetName(),
			Kind:   models.ResultWinner,
			Points: r.scores[winner.ID],
		}})
	case 0:
		// 没有任何接收方，静默终止
		r.stopClockLocked()
		r.finishLocked()
	default:
		r.broadcastStateLocked()
	}
}

// StartGame 开始对局。人数不足时返回 ErrNotEnoughPlayers 且不改变任何状态。
func (r *Room) StartGame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) < MinPlayers {
		return ErrNotEnoughPlayers
	}
	if err := r.machine.Transition(state.StatusPlaying); err != nil {
		return err
	}

	r.currentRound = 1
	r.startRoundLocked()
	return nil
}

// startRoundLocked 初始化并开始当前回合。调用方必须持有 r.mu。
func (r *Room) startRoundLocked() {
	r.targetNumber = rand.Intn(TargetMax-TargetMin+1) + TargetMin
	r.roundWinner = ""
	r.roundTimeLeft = RoundDuration
	r.guesses = make(map[string]int)
	r.clockStopped = false

	logger.Log.Infof("Room %s round %d started, target drawn", r.ID, r.currentRound)

	r.broadcast(network.MsgTypeRoundStarted, models.RoundStartedEvent{
		Round:    r.currentRound,
		TimeLeft: r.roundTimeLeft,
	})

	round := r.currentRound
	r.tickTimerID = r.timers.AddTimer(time.Second, time.Second, func() {
		r.handleTick(round)
	})

	// 提示生成是旁路调用，不阻塞回合计时
	go r.fetchHint(round, r.targetNumber)
}

// handleTick 每秒触发一次，递减剩余时间并在归零时走超时路径
func (r *Room) handleTick(round int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 陈旧的tick：回合已结束或时钟已取消
	if !r.machine.Is(state.StatusPlaying) || r.currentRound != round || r.clockStopped {
		return
	}

	r.roundTimeLeft--
	r.broadcast(network.MsgTypeTimerUpdate, models.TimerUpdateEvent{TimeLeft: r.roundTimeLeft})

	if r.roundTimeLeft > 0 {
		return
	}

	// 超时：时间耗尽且无人获胜
	r.stopClockLocked()

	var missing []string
	for _, p := range r.players {
		if _, ok := r.guesses[p.ID]; !ok {
			missing = append(missing, p.GetName())
		}
	}
	if len(missing) > 0 {
		r.broadcast(network.MsgTypePlayersTimeout, models.PlayersTimeoutEvent{
			Players:      missing,
			TargetNumber: r.targetNumber,
		})
	}

	r.scheduleEndRoundLocked(round)
}

// MakeGuess 处理一次猜测提交。重复提交、回合已分胜负、未入座、
// 数值越界都是静默无操作。
func (r *Room) MakeGuess(playerID string, guess int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.machine.Is(state.StatusPlaying) {
		return
	}
	if guess < TargetMin || guess > TargetMax {
		logger.Log.Debugf("Room %s: out-of-range guess %d from %s ignored", r.ID, guess, playerID)
		return
	}

	player := r.playerByIDLocked(playerID)
	if player == nil {
		return
	}
	if r.roundWinner != "" || r.clockStopped {
		// 回合已分胜负或时钟已取消（超时揭晓、回合间隔），
		// 后到的猜测一律无效
		return
	}
	if _, already := r.guesses[playerID]; already {
		return
	}

	// 先落账，再判定
	r.guesses[playerID] = guess
	round := r.currentRound

	if guess == r.targetNumber {
		// 锁内的test-and-set：并发送达的两个正确猜测只有先到的这个能提交
		r.roundWinner = playerID
		r.scores[playerID]++
		r.stopClockLocked()

		r.broadcast(network.MsgTypeCorrectGuess, models.CorrectGuessEvent{
			PlayerID:     playerID,
			PlayerName:   player.GetName(),
			TargetNumber: r.targetNumber,
			Guess:        guess,
		})

		r.scheduleEndRoundLocked(round)
		return
	}

	r.unicast(playerID, network.MsgTypeWrongGuess, models.WrongGuessEvent{
		Guess:        guess,
		TargetNumber: r.targetNumber,
		Message:      "Wrong guess!",
	})
	r.broadcast(network.MsgTypePlayerGuessed, models.PlayerGuessedEvent{
		PlayerID:   playerID,
		PlayerName: player.GetName(),
		HasGuessed: true,
	})

	// 所有在座玩家都猜过且无人猜中，提前结束回合
	if len(r.guesses) >= len(r.players) && r.roundWinner == "" {
		r.stopClockLocked()
		r.broadcast(network.MsgTypeAllPlayersGuessed, models.AllPlayersGuessedEvent{
			Message:      "Everyone guessed, nobody got it!",
			TargetNumber: r.targetNumber,
		})
		r.scheduleEndRoundLocked(round)
	}
}

// scheduleEndRoundLocked 在宽限期后收尾回合，让玩家看清结果
func (r *Room) scheduleEndRoundLocked(round int) {
	r.timers.AddTimer(GraceDelay, 0, func() {
		r.endRound(round)
	})
}

// endRound 收尾一个回合：未到最后一回合则广播小结并调度下一回合，
// 否则进入终局结算。
func (r *Room) endRound(round int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.machine.Is(state.StatusPlaying) || r.currentRound != round {
		return
	}

	if r.currentRound < MaxRounds {
		r.broadcast(network.MsgTypeRoundEnd, models.RoundEndEvent{
			Round:  r.currentRound,
			Scores: r.copyScoresLocked(),
			Winner: r.roundWinner,
		})

		r.currentRound++
		next := r.currentRound
		r.timers.AddTimer(NextRoundDelay, 0, func() {
			r.startNextRound(next)
		})
		return
	}

	r.endGameLocked()
}

func (r *Room) startNextRound(round int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.machine.Is(state.StatusPlaying) || r.currentRound != round {
		return
	}
	r.startRoundLocked()
}

// endGameLocked 终局结算：按最高分划分 winner/tie/lose/draw 并逐人单播
func (r *Room) endGameLocked() {
	r.finishLocked()

	maxScore := 0
	for _, score := range r.scores {
		if score > maxScore {
			maxScore = score
		}
	}

	var winners []string
	for id, score := range r.scores {
		if score == maxScore {
			winners = append(winners, id)
		}
	}

	finalScores := r.copyScoresLocked()

	for _, p := range r.players {
		result := r.resultForLocked(p.ID, maxScore, winners)
		r.unicast(p.ID, network.MsgTypeGameEnd, models.GameEndEvent{
			Result:      result,
			FinalScores: finalScores,
		})
	}

	logger.Log.Infof("Room %s game finished, maxScore=%d winners=%d", r.ID, maxScore, len(winners))
	r.recordLocked()
}

// resultForLocked 计算某个玩家的个性化终局结果
func (r *Room) resultForLocked(playerID string, maxScore int, winners []string) models.GameResult {
	if maxScore == 0 {
		return models.GameResult{
			Kind:    models.ResultDraw,
			Message: "Nobody guessed correctly. The game is a draw.",
		}
	}

	isWinner := false
	for _, id := range winners {
		if id == playerID {
			isWinner = true
			break
		}
	}

	if len(winners) > 1 {
		if isWinner {
			return models.GameResult{
				Kind:    models.ResultTie,
				Message: "It's a tie! You share the win.",
			}
		}
		return models.GameResult{
			Kind:    models.ResultLose,
			Message: "The game ended in a tie between the top scorers.",
		}
	}

	winnerID := winners[0]
	if isWinner {
		return models.GameResult{
			Kind:    models.ResultWinner,
			Message: "You win the game!",
			Winner:  winnerID,
		}
	}

	winnerName := winnerID
	if p := r.playerByIDLocked(winnerID); p != nil {
		winnerName = p.GetName()
	}
	return models.GameResult{
		Kind:    models.ResultLose,
		Message: fmt.Sprintf("%s wins the game.", winnerName),
		Winner:  winnerID,
	}
}

// fetchHint 在独立goroutine中生成提示，回合仍在进行时才广播
func (r *Room) fetchHint(round, target int) {
	message := r.hints.Hint(context.Background(), target)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.machine.Is(state.StatusPlaying) || r.currentRound != round || r.clockStopped || r.roundWinner != "" {
		return
	}
	r.broadcast(network.MsgTypeHint, models.HintEvent{Round: round, Message: message})
}

// Close 关闭房间，取消所有计时并标记为终态
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopClockLocked()
	if !r.machine.Is(state.StatusFinished) {
		r.finishLocked()
	}
}

// StateEvent 构造当前座位表快照，用于进出房间后的状态同步
func (r *Room) StateEvent() models.RoomStateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateEventLocked()
}

// --- internal helpers, r.mu held ---

// stopClockLocked 取消本回合时钟，重复调用是无操作
func (r *Room) stopClockLocked() {
	if r.clockStopped {
		return
	}
	r.clockStopped = true
	if r.tickTimerID != 0 {
		r.timers.RemoveTimer(r.tickTimerID)
		r.tickTimerID = 0
	}
}

func (r *Room) finishLocked() {
	if err := r.machine.Transition(state.StatusFinished); err != nil {
		logger.Log.Warnf("Room %s: finish transition rejected: %v", r.ID, err)
	}
}

func (r *Room) playerByIDLocked(playerID string) *session.Session {
	for _, p := range r.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (r *Room) copyScoresLocked() map[string]int {
	scores := make(map[string]int, len(r.scores))
	for id, score := range r.scores {
		scores[id] = score
	}
	return scores
}

func (r *Room) stateEventLocked() models.RoomStateEvent {
	seats := make([]models.PlayerSeat, 0, len(r.players))
	for _, p := range r.players {
		seats = append(seats, models.PlayerSeat{
			PlayerID: p.ID,
			Name:     p.GetName(),
			Score:    r.scores[p.ID],
		})
	}
	return models.RoomStateEvent{
		RoomID:  r.ID,
		Status:  string(r.machine.Current()),
		Round:   r.currentRound,
		Players: seats,
	}
}

func (r *Room) broadcastStateLocked() {
	r.broadcast(network.MsgTypeRoomState, r.stateEventLocked())
}

// recordLocked 按比分归类战绩后异步落库
func (r *Room) recordLocked() {
	maxScore := 0
	for _, score := range r.scores {
		if score > maxScore {
			maxScore = score
		}
	}
	winnerCount := 0
	for _, score := range r.scores {
		if score == maxScore {
			winnerCount++
		}
	}

	outcomes := make([]models.PlayerOutcome, 0, len(r.players))
	for _, p := range r.players {
		score := r.scores[p.ID]
		kind := models.ResultLose
		switch {
		case maxScore == 0:
			kind = models.ResultDraw
		case score == maxScore && winnerCount > 1:
			kind = models.ResultTie
		case score == maxScore:
			kind = models.ResultWinner
		}
		outcomes = append(outcomes, models.PlayerOutcome{
			UserID: p.UserID,
			Name:   p.GetName(),
			Kind:   kind,
			Points: score,
		})
	}

	r.record(outcomes)
}

func (r *Room) record(outcomes []models.PlayerOutcome) {
	if r.recorder == nil || len(outcomes) == 0 {
		return
	}
	go r.recorder.RecordGameEnd(r.ID, outcomes)
}

func (r *Room) broadcast(msgID uint16, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("Room %s: marshal broadcast %d failed: %v", r.ID, msgID, err)
		return
	}
	if err := r.broadcaster.BroadcastToRoom(r.ID, msgID, data); err != nil {
		logger.Log.Debugf("Room %s: broadcast %d failed: %v", r.ID, msgID, err)
	}
}

func (r *Room) unicast(sessionID string, msgID uint16, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("Room %s: marshal unicast %d failed: %v", r.ID, msgID, err)
		return
	}
	if err := r.broadcaster.SendToSession(sessionID, msgID, data); err != nil {
		logger.Log.Debugf("Room %s: unicast %d to %s failed: %v", r.ID, msgID, sessionID, err)
	}
}
