// rpc/rpc.go
package rpc

import (
	"encoding/json"
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/guessgame/broadcast"
	"github.com/wfunc/guessgame/logger"
	"github.com/wfunc/guessgame/models"
	"github.com/wfunc/guessgame/network"
	"github.com/wfunc/guessgame/room"
	"github.com/wfunc/guessgame/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services must be registered with
// net/rpc before Start is called.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// GameService exposes admin queries and notices over net/rpc.
type GameService struct {
	playerService *services.PlayerService
	roomManager   *room.Manager
	broadcaster   broadcast.Broadcaster
}

func NewGameService(ps *services.PlayerService, rm *room.Manager, b broadcast.Broadcaster) *GameService {
	return &GameService{playerService: ps, roomManager: rm, broadcaster: b}
}

// Register binds the service under the "GameService" name.
func (gs *GameService) Register() error {
	return rpc.RegisterName("GameService", gs)
}

type GetPlayerArgs struct {
	UserID int64
}

type GetPlayerReply struct {
	Data map[string]interface{}
}

// GetPlayerWithStats follows the net/rpc method signature: exported method,
// exported arguments, second argument is a pointer, return type is error.
func (gs *GameService) GetPlayerWithStats(args *GetPlayerArgs, reply *GetPlayerReply) error {
	if gs.playerService == nil {
		reply.Data = map[string]interface{}{}
		return nil
	}
	data, err := gs.playerService.GetPlayerWithStats(args.UserID)
	if err != nil {
		return err
	}
	reply.Data = data
	return nil
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	Rooms []room.Info
}

// ListRooms returns a snapshot of every live room.
func (gs *GameService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	reply.Rooms = gs.roomManager.Snapshot()
	return nil
}

type NotifyArgs struct {
	UserIDs []int64 // 为空时发给所有在线会话
	Message string
}

type NotifyReply struct {
	Sent bool
}

// Notify pushes an operator notice to the given users, or to everyone
// online when no user ids are given.
func (gs *GameService) Notify(args *NotifyArgs, reply *NotifyReply) error {
	if args.Message == "" {
		return errors.New("empty notice message")
	}

	data, err := json.Marshal(models.NoticeEvent{Message: args.Message})
	if err != nil {
		return err
	}

	if len(args.UserIDs) == 0 {
		err = gs.broadcaster.BroadcastToAll(network.MsgTypeNotice, data)
	} else {
		err = gs.broadcaster.BroadcastToUsers(args.UserIDs, network.MsgTypeNotice, data)
	}
	if err != nil {
		return err
	}

	reply.Sent = true
	return nil
}
