package service

import (
	"sync/atomic"
	"time"
)

// State: флаги процесса для проб и /healthz.
type State struct {
	ready     atomic.Bool
	halted    atomic.Bool
	startedAt time.Time

	lastCycleUnix atomic.Int64 // unix seconds
	cycles        atomic.Int64
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetHalted(v bool) { s.halted.Store(v) }
func (s *State) Halted() bool     { return s.halted.Load() }

// TouchCycle отмечает завершённый цикл.
func (s *State) TouchCycle(t time.Time) {
	s.lastCycleUnix.Store(t.Unix())
	s.cycles.Add(1)
}

func (s *State) LastCycle() time.Time {
	u := s.lastCycleUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Cycles() int64 { return s.cycles.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
