package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/guessgame/broadcast"
	"github.com/wfunc/guessgame/hint"
	"github.com/wfunc/guessgame/logger"
	"github.com/wfunc/guessgame/models"
	"github.com/wfunc/guessgame/monitor"
	"github.com/wfunc/guessgame/network"
	"github.com/wfunc/guessgame/room"
	guessgame_rpc "github.com/wfunc/guessgame/rpc"
	"github.com/wfunc/guessgame/services"
	"github.com/wfunc/guessgame/session"
	"github.com/wfunc/guessgame/state"
	"github.com/wfunc/guessgame/timer"
)

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	playerService  *services.PlayerService
	broadcaster    broadcast.Broadcaster
	rpcServer      *guessgame_rpc.Server
	monitor        *monitor.Monitor
	shutdownChan   chan struct{}
}

// NewGameServer 组装所有子系统。playerService 和 mon 可为 nil。
func NewGameServer(addr, rpcAddr string, timers *timer.Manager, hints hint.Provider, playerService *services.PlayerService, mon *monitor.Monitor) (*GameServer, error) {
	s := &GameServer{
		addr:           addr,
		sessionManager: session.NewManager(),
		playerService:  playerService,
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	s.broadcaster = broadcast.NewRoomBroadcaster(s.sessionManager)

	var recorder room.GameRecorder = gameEndHook{server: s}
	s.roomManager = room.NewManager(timers, s.broadcaster, hints, recorder)

	rpcServer, err := guessgame_rpc.NewServer(rpcAddr)
	if err != nil {
		return nil, err
	}
	s.rpcServer = rpcServer

	gameService := guessgame_rpc.NewGameService(playerService, s.roomManager, s.broadcaster)
	if err := gameService.Register(); err != nil {
		return nil, err
	}

	return s, nil
}

// gameEndHook 把终局结果转发给持久层并更新指标
type gameEndHook struct {
	server *GameServer
}

func (h gameEndHook) RecordGameEnd(roomID string, outcomes []models.PlayerOutcome) {
	if h.server.monitor != nil {
		h.server.monitor.IncGamesFinished()
	}
	if h.server.playerService != nil {
		h.server.playerService.RecordGameEnd(roomID, outcomes)
	}
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	if s.monitor != nil {
		s.monitor.IncOnlinePlayers()
	}

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.leaveCurrentRoom(sess)
		s.sessionManager.Remove(sess.GetID())
		if s.monitor != nil {
			s.monitor.DecOnlinePlayers()
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	if s.monitor != nil {
		s.monitor.IncMessagesReceived()
		defer func() {
			s.monitor.ObserveMessageLatency(time.Since(start))
		}()
	}

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(sess)
	case network.MsgTypeStartGame:
		s.handleStartGame(sess)
	case network.MsgTypeGuess:
		s.handleGuess(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	var req models.CreateRoomRequest
	if len(packet.Data) > 0 {
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			s.sendError(sess, "bad_request", "Malformed create room request")
			return
		}
	}
	s.applyIdentity(sess, req.PlayerName, req.UserID)

	// 已在别的房间里，先退出
	s.leaveCurrentRoom(sess)

	roomID := uuid.New().String()
	r := s.roomManager.CreateRoom(roomID, fmt.Sprintf("%s's room", sess.GetName()))
	if err := r.AddPlayer(sess); err != nil {
		s.roomManager.RemoveRoom(roomID)
		s.sendError(sess, "join_failed", err.Error())
		return
	}
	s.updateRoomGauge()

	logger.Log.Infof("Session %s created room %s", sess.GetID(), roomID)

	resp := map[string]string{"room_id": roomID}
	data, _ := json.Marshal(resp)
	sess.Send(network.MsgTypeCreateRoom, data)
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req models.JoinRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "bad_request", "Malformed join room request")
		return
	}
	s.applyIdentity(sess, req.PlayerName, req.UserID)
	s.leaveCurrentRoom(sess)

	var r *room.Room
	if req.RoomID != "" {
		found, exists := s.roomManager.GetRoom(req.RoomID)
		if !exists {
			s.sendError(sess, "room_not_found", "Room does not exist")
			return
		}
		r = found
	} else {
		// 快速匹配：找一个等待中的有空位的房间
		r = s.roomManager.FindAvailableRoom()
		if r == nil {
			s.sendError(sess, "no_room_available", "No open room to join")
			return
		}
	}

	if err := r.AddPlayer(sess); err != nil {
		switch err {
		case room.ErrRoomFull:
			s.sendError(sess, "room_full", "Room is full")
		case room.ErrRoomClosed:
			s.sendError(sess, "room_closed", "Game already finished")
		default:
			s.sendError(sess, "join_failed", err.Error())
		}
		return
	}

	logger.Log.Infof("Session %s joined room %s", sess.GetID(), r.ID)

	resp := map[string]string{"room_id": r.ID}
	data, _ := json.Marshal(resp)
	sess.Send(network.MsgTypeJoinRoom, data)
}

func (s *GameServer) handleLeaveRoom(sess *session.Session) {
	s.leaveCurrentRoom(sess)
}

func (s *GameServer) handleStartGame(sess *session.Session) {
	r, ok := s.currentRoom(sess)
	if !ok {
		return
	}

	if err := r.StartGame(); err != nil {
		switch err {
		case room.ErrNotEnoughPlayers:
			s.sendError(sess, "not_enough_players", "Need at least 2 players to start")
		case state.ErrTransitionNotAllowed:
			s.sendError(sess, "already_started", "Game already started")
		default:
			s.sendError(sess, "start_failed", err.Error())
		}
		return
	}

	if s.monitor != nil {
		s.monitor.IncGamesStarted()
	}
}

func (s *GameServer) handleGuess(sess *session.Session, packet *network.Packet) {
	r, ok := s.currentRoom(sess)
	if !ok {
		return
	}

	var req models.GuessRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "bad_request", "Malformed guess")
		return
	}

	if s.monitor != nil {
		s.monitor.IncGuessesReceived()
	}
	r.MakeGuess(sess.GetID(), req.Guess)
}

// leaveCurrentRoom 把会话移出所在房间，房间空了就销毁
func (s *GameServer) leaveCurrentRoom(sess *session.Session) {
	roomID := sess.GetRoomID()
	if roomID == "" {
		return
	}

	r, exists := s.roomManager.GetRoom(roomID)
	if exists {
		r.RemovePlayer(sess.GetID())
		if r.PlayerCount() == 0 {
			s.roomManager.RemoveRoom(roomID)
		}
	}
	sess.SetRoomID("")
	s.updateRoomGauge()
}

func (s *GameServer) currentRoom(sess *session.Session) (*room.Room, bool) {
	roomID := sess.GetRoomID()
	if roomID == "" {
		s.sendError(sess, "not_in_room", "Join a room first")
		return nil, false
	}
	r, exists := s.roomManager.GetRoom(roomID)
	if !exists {
		logger.Log.Errorf("Room %s not found for session %s", roomID, sess.GetID())
		sess.SetRoomID("")
		s.sendError(sess, "room_not_found", "Room no longer exists")
		return nil, false
	}
	return r, true
}

// applyIdentity 写入客户端自报的昵称和落盘身份。
// userID 为 0 时保持匿名，终局统计不会为其建档。
func (s *GameServer) applyIdentity(sess *session.Session, name string, userID int64) {
	if name != "" {
		sess.SetName(name)
	} else if sess.GetName() == "" {
		sess.SetName("Player-" + sess.GetID()[:8])
	}
	if userID != 0 {
		sess.UserID = userID
	}
}

func (s *GameServer) sendError(sess *session.Session, code, message string) {
	data, _ := json.Marshal(models.ErrorEvent{Code: code, Message: message})
	sess.Send(network.MsgTypeError, data)
}

func (s *GameServer) updateRoomGauge() {
	if s.monitor != nil {
		s.monitor.SetActiveRooms(s.roomManager.Count())
	}
}
