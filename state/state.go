package state

import (
	"errors"
	"sync"
)

// Status 房间的业务状态
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// ErrTransitionNotAllowed is returned when a status transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// transitions 合法的状态迁移表。状态只会向前走，不允许回退。
var transitions = map[Status]map[Status]bool{
	StatusWaiting: {
		StatusPlaying:  true,
		StatusFinished: true, // 全员离开时房间直接作废
	},
	StatusPlaying: {
		StatusFinished: true,
	},
	StatusFinished: {},
}

// Machine 状态机，保证迁移的合法性
type Machine struct {
	current Status
	mutex   sync.RWMutex
}

func NewMachine() *Machine {
	return &Machine{current: StatusWaiting}
}

// Transition 尝试迁移到目标状态，非法迁移返回 ErrTransitionNotAllowed
func (m *Machine) Transition(to Status) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !transitions[m.current][to] {
		return ErrTransitionNotAllowed
	}
	m.current = to
	return nil
}

// Current 获取当前状态
func (m *Machine) Current() Status {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// Is reports whether the machine is currently in the given status.
func (m *Machine) Is(s Status) bool {
	return m.Current() == s
}
