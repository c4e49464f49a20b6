package service

import (
	"sync/atomic"
	"time"
)

// State — worker liveness counters shared between the reconcile loop and the
// HTTP surface.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	lastCycleUnix atomic.Int64
	cyclesTotal   atomic.Int64
	paymentsTotal atomic.Int64
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) TouchCycle(t time.Time) {
	s.lastCycleUnix.Store(t.Unix())
	s.cyclesTotal.Add(1)
}

func (s *State) LastCycle() time.Time {
	u := s.lastCycleUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) CountPayment()       { s.paymentsTotal.Add(1) }
func (s *State) Cycles() int64       { return s.cyclesTotal.Load() }
func (s *State) Payments() int64     { return s.paymentsTotal.Load() }
func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
