package orchestrator

import (
	"github.com/looplab/fsm"
)

const (
	StateOffline       = "offline"
	StateOnlineIdle    = "online_idle"
	StateOnlineSyncing = "online_syncing"
)

const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
	EventBeginSync  = "begin_sync"
	EventEndSync    = "end_sync"
)

// newMachine builds the connectivity machine. It tracks the agent, not any
// delivery: a pass may still be running after EventDisconnect.
func newMachine(callbacks fsm.Callbacks) *fsm.FSM {
	return fsm.NewFSM(
		StateOffline,
		fsm.Events{
			{Name: EventConnect, Src: []string{StateOffline}, Dst: StateOnlineIdle},
			{Name: EventDisconnect, Src: []string{StateOnlineIdle, StateOnlineSyncing}, Dst: StateOffline},
			{Name: EventBeginSync, Src: []string{StateOnlineIdle}, Dst: StateOnlineSyncing},
			{Name: EventEndSync, Src: []string{StateOnlineSyncing}, Dst: StateOnlineIdle},
		},
		callbacks,
	)
}
