package stepthread

import "sync/atomic"

// ThreadState is the lifecycle of a Controller.
//
//	Uninitialized -> Initializing   [Start]
//	Initializing  -> Running        [first sample appended]
//	Initializing  -> Stopped        [init failure]
//	Running       -> Stopping       [Stop]
//	Stopping      -> Stopped        [goroutine joined]
//	Stopped       -> Initializing   [Start]
//
// Stopping persists after a join timeout until the goroutine is observed
// to have exited.
type ThreadState int32

const (
	Uninitialized ThreadState = iota
	Initializing
	Running
	Stopping
	Stopped
)

func (s ThreadState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type stateCell struct {
	v atomic.Int32
}

func (c *stateCell) Load() ThreadState   { return ThreadState(c.v.Load()) }
func (c *stateCell) Store(s ThreadState) { c.v.Store(int32(s)) }
