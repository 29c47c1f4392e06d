package viewer

import (
	"sync/atomic"
)

type GateState int32

const (
	GatePending GateState = iota
	GateComplete
	GateFailed
)

func (g GateState) String() string {
	switch g {
	case GatePending:
		return "PENDING"
	case GateComplete:
		return "COMPLETE"
	case GateFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Gate leaves Pending exactly once, terminal states never change
type Gate struct {
	state int32
}

func (g *Gate) State() GateState {
	return GateState(atomic.LoadInt32(&g.state))
}

// Complete returns true only for the call that moved the gate out of Pending
func (g *Gate) Complete() bool {
	return atomic.CompareAndSwapInt32(&g.state, int32(GatePending), int32(GateComplete))
}

func (g *Gate) Fail() bool {
	return atomic.CompareAndSwapInt32(&g.state, int32(GatePending), int32(GateFailed))
}
