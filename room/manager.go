// room/manager.go
package room

import (
	"sync"

	"github.com/wfunc/guessgame/hint"
	"github.com/wfunc/guessgame/state"
	"github.com/wfunc/guessgame/timer"
)

// Info 房间概要，供监控和管理接口使用
type Info struct {
	RoomID  string `json:"room_id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Round   int    `json:"round"`
	Players int    `json:"players"`
}

// Manager 管理所有房间。创建/销毁/查找可以并行，房间之间没有共享可变状态。
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex

	timers      *timer.Manager
	broadcaster Broadcaster
	hints       hint.Provider
	recorder    GameRecorder
}

// NewManager 创建一个新的房间管理器。hints 和 recorder 可为 nil。
func NewManager(timers *timer.Manager, broadcaster Broadcaster, hints hint.Provider, recorder GameRecorder) *Manager {
	return &Manager{
		rooms:       make(map[string]*Room),
		timers:      timers,
		broadcaster: broadcaster,
		hints:       hints,
		recorder:    recorder,
	}
}

// CreateRoom 创建一个新房间并登记
func (m *Manager) CreateRoom(id, name string) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room := NewRoom(id, name, m.timers, m.broadcaster, m.hints, m.recorder)
	m.rooms[id] = room
	return room
}

// RemoveRoom 注销并关闭一个房间
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[id]; exists {
		room.Close()
		delete(m.rooms, id)
	}
}

// GetRoom 按ID获取房间
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// FindAvailableRoom 查找一个等待中且有空位的房间
func (m *Manager) FindAvailableRoom() *Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, room := range m.rooms {
		if room.Status() == state.StatusWaiting && room.PlayerCount() < MaxPlayers {
			return room
		}
	}
	return nil
}

// Count returns the number of registered rooms.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Snapshot 返回所有房间的概要信息
func (m *Manager) Snapshot() []Info {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	infos := make([]Info, 0, len(m.rooms))
	for _, room := range m.rooms {
		infos = append(infos, Info{
			RoomID:  room.ID,
			Name:    room.Name,
			Status:  string(room.Status()),
			Round:   room.Round(),
			Players: room.PlayerCount(),
		})
	}
	return infos
}
