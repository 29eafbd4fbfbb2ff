package server

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wfunc/guessgame/broadcast"
	"github.com/wfunc/guessgame/logger"
	"github.com/wfunc/guessgame/models"
	"github.com/wfunc/guessgame/network"
	"github.com/wfunc/guessgame/room"
	"github.com/wfunc/guessgame/session"
	"github.com/wfunc/guessgame/timer"
)

func init() {
	logger.Init()
}

// MockConnection 记录发出的消息
type MockConnection struct {
	msgIDs   []uint16
	payloads [][]byte
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.msgIDs = append(m.msgIDs, msgID)
	m.payloads = append(m.payloads, data)
	return nil
}
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func (m *MockConnection) received(msgID uint16) int {
	count := 0
	for _, id := range m.msgIDs {
		if id == msgID {
			count++
		}
	}
	return count
}

// newTestServer 只组装消息处理需要的部分，不监听任何端口
func newTestServer(t *testing.T) *GameServer {
	t.Helper()
	timers := timer.NewManagerWithClock(clockwork.NewFakeClock())
	t.Cleanup(timers.Stop)

	s := &GameServer{
		sessionManager: session.NewManager(),
		shutdownChan:   make(chan struct{}),
	}
	s.broadcaster = broadcast.NewRoomBroadcaster(s.sessionManager)
	s.roomManager = room.NewManager(timers, s.broadcaster, nil, gameEndHook{server: s})
	return s
}

func newTestSession(s *GameServer, id string) (*session.Session, *MockConnection) {
	conn := &MockConnection{}
	sess := session.NewSession(id, conn)
	s.sessionManager.Add(sess)
	return sess, conn
}

func TestApplyIdentity(t *testing.T) {
	s := newTestServer(t)
	sess, _ := newTestSession(s, "abcdefgh-session")

	s.applyIdentity(sess, "alice", 42)
	if sess.GetName() != "alice" || sess.UserID != 42 {
		t.Errorf("Identity not applied: name=%q userID=%d", sess.GetName(), sess.UserID)
	}

	// 空昵称和零ID不覆盖已有身份
	s.applyIdentity(sess, "", 0)
	if sess.GetName() != "alice" || sess.UserID != 42 {
		t.Errorf("Empty identity must not overwrite: name=%q userID=%d", sess.GetName(), sess.UserID)
	}
}

func TestApplyIdentity_DefaultName(t *testing.T) {
	s := newTestServer(t)
	sess, _ := newTestSession(s, "abcdefgh-session")

	s.applyIdentity(sess, "", 0)
	if sess.GetName() != "Player-abcdefgh" {
		t.Errorf("Expected generated name, got %q", sess.GetName())
	}
}

func TestHandleCreateRoom(t *testing.T) {
	s := newTestServer(t)
	sess, conn := newTestSession(s, "abcdefgh-session")

	data, _ := json.Marshal(models.CreateRoomRequest{PlayerName: "alice", UserID: 42})
	s.handleCreateRoom(sess, &network.Packet{MsgID: network.MsgTypeCreateRoom, Data: data})

	if sess.GetRoomID() == "" {
		t.Fatal("Creator should be seated in the new room")
	}
	if sess.UserID != 42 {
		t.Errorf("UserID from the request must be applied, got %d", sess.UserID)
	}
	if _, exists := s.roomManager.GetRoom(sess.GetRoomID()); !exists {
		t.Error("The created room should be registered")
	}
	if conn.received(network.MsgTypeCreateRoom) != 1 {
		t.Error("Creator should receive the room id reply")
	}
	if conn.received(network.MsgTypeRoomState) != 1 {
		t.Error("Creator should receive the seat list")
	}
}

func TestHandleJoinRoom_QuickMatch(t *testing.T) {
	s := newTestServer(t)
	creator, _ := newTestSession(s, "creator-session")
	data, _ := json.Marshal(models.CreateRoomRequest{PlayerName: "alice"})
	s.handleCreateRoom(creator, &network.Packet{Data: data})

	joiner, conn := newTestSession(s, "joiner-session")
	joinData, _ := json.Marshal(models.JoinRoomRequest{PlayerName: "bob"})
	s.handleJoinRoom(joiner, &network.Packet{Data: joinData})

	if joiner.GetRoomID() != creator.GetRoomID() {
		t.Error("Quick match should land in the open room")
	}
	if conn.received(network.MsgTypeJoinRoom) != 1 {
		t.Error("Joiner should receive the room id reply")
	}
}

func TestHandleJoinRoom_NotFound(t *testing.T) {
	s := newTestServer(t)
	sess, conn := newTestSession(s, "joiner-session")

	data, _ := json.Marshal(models.JoinRoomRequest{RoomID: "missing", PlayerName: "bob"})
	s.handleJoinRoom(sess, &network.Packet{Data: data})

	if conn.received(network.MsgTypeError) != 1 {
		t.Error("Joining a missing room should produce an error event")
	}
	if sess.GetRoomID() != "" {
		t.Error("Session must not be seated anywhere")
	}
}

func TestLeaveCurrentRoom_DestroysEmptyRoom(t *testing.T) {
	s := newTestServer(t)
	sess, _ := newTestSession(s, "creator-session")
	data, _ := json.Marshal(models.CreateRoomRequest{PlayerName: "alice"})
	s.handleCreateRoom(sess, &network.Packet{Data: data})
	roomID := sess.GetRoomID()

	s.leaveCurrentRoom(sess)

	if sess.GetRoomID() != "" {
		t.Error("Session should be detached from the room")
	}
	if _, exists := s.roomManager.GetRoom(roomID); exists {
		t.Error("An emptied room must be destroyed")
	}
}

func TestLeaveCurrentRoom_KeepsOccupiedRoom(t *testing.T) {
	s := newTestServer(t)
	creator, _ := newTestSession(s, "creator-session")
	data, _ := json.Marshal(models.CreateRoomRequest{PlayerName: "alice"})
	s.handleCreateRoom(creator, &network.Packet{Data: data})

	joiner, _ := newTestSession(s, "joiner-session")
	joinData, _ := json.Marshal(models.JoinRoomRequest{PlayerName: "bob"})
	s.handleJoinRoom(joiner, &network.Packet{Data: joinData})
	roomID := creator.GetRoomID()

	s.leaveCurrentRoom(creator)

	if _, exists := s.roomManager.GetRoom(roomID); !exists {
		t.Error("A room with remaining players must survive a leave")
	}
}
