package rpc

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

type recordingConn struct {
	msgIDs   []uint16
	payloads [][]byte
}

func (c *recordingConn) Send(msgID uint16, data []byte) error {
	c.msgIDs = append(c.msgIDs, msgID)
	c.payloads = append(c.payloads, data)
	return nil
}
func (c *recordingConn) Close() error                         { return nil }
func (c *recordingConn) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (c *recordingConn) SetHeartbeat(interval time.Duration)  {}
func (c *recordingConn) ReadPacket() (*network.Packet, error) { return nil, nil }

func newTestService(t *testing.T) (*GameService, *session.Manager, *room.Manager) {
	t.Helper()
	sessions := session.NewManager()
	b := broadcast.NewRoomBroadcaster(sessions)
	timers := timer.NewManagerWithClock(clockwork.NewFakeClock())
	t.Cleanup(timers.Stop)
	rooms := room.NewManager(timers, b, nil, nil)
	return NewGameService(nil, rooms, b), sessions, rooms
}

func TestGameService_ListRooms(t *testing.T) {
	gs, _, rooms := newTestService(t)
	rooms.CreateRoom("room1", "First")

	var reply ListRoomsReply
	if err := gs.ListRooms(&ListRoomsArgs{}, &reply); err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(reply.Rooms) != 1 || reply.Rooms[0].RoomID != "room1" {
		t.Errorf("Unexpected room list: %+v", reply.Rooms)
	}
}

func TestGameService_NotifyUsers(t *testing.T) {
	gs, sessions, _ := newTestService(t)

	conn := &recordingConn{}
	s := session.NewSession("s1", conn)
	s.UserID = 42
	sessions.Add(s)
	otherConn := &recordingConn{}
	other := session.NewSession("s2", otherConn)
	other.UserID = 7
	sessions.Add(other)

	var reply NotifyReply
	if err := gs.Notify(&NotifyArgs{UserIDs: []int64{42}, Message: "Maintenance at midnight"}, &reply); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if !reply.Sent {
		t.Error("Reply should confirm delivery")
	}
	if len(conn.msgIDs) != 1 || conn.msgIDs[0] != network.MsgTypeNotice {
		t.Fatalf("Expected one notice for user 42, got %v", conn.msgIDs)
	}
	var notice models.NoticeEvent
	if err := json.Unmarshal(conn.payloads[0], &notice); err != nil {
		t.Fatalf("Failed to decode notice: %v", err)
	}
	if notice.Message != "Maintenance at midnight" {
		t.Errorf("Unexpected notice payload: %+v", notice)
	}
	if len(otherConn.msgIDs) != 0 {
		t.Error("Untargeted user must not receive the notice")
	}
}

func TestGameService_NotifyAll(t *testing.T) {
	gs, sessions, _ := newTestService(t)

	conn := &recordingConn{}
	sessions.Add(session.NewSession("s1", conn))

	var reply NotifyReply
	if err := gs.Notify(&NotifyArgs{Message: "Server restarting soon"}, &reply); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(conn.msgIDs) != 1 || conn.msgIDs[0] != network.MsgTypeNotice {
		t.Errorf("Everyone online should receive the notice, got %v", conn.msgIDs)
	}
}

func TestGameService_NotifyRejectsEmptyMessage(t *testing.T) {
	gs, _, _ := newTestService(t)

	var reply NotifyReply
	if err := gs.Notify(&NotifyArgs{UserIDs: []int64{42}}, &reply); err == nil {
		t.Error("An empty notice must be rejected")
	}
}
