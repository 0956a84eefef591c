package client

import "fmt"

// State is the progress of a single call
type State int

const (
	StateUnsent State = iota
	StateAssembling
	StateSigned
	StateDispatched
	StateSucceeded
	StateFailed
)

var stateNames = [...]string{
	StateUnsent:     "unsent",
	StateAssembling: "assembling",
	StateSigned:     "signed",
	StateDispatched: "dispatched",
	StateSucceeded:  "succeeded",
	StateFailed:     "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// next is the only state reachable from s on success
func (s State) next() State {
	switch s {
	case StateUnsent:
		return StateAssembling
	case StateAssembling:
		return StateSigned
	case StateSigned:
		return StateDispatched
	case StateDispatched:
		return StateSucceeded
	default:
		return s
	}
}

// call tracks the state transitions of one Call
type call struct {
	state State
	trace []State
}

func newCall() *call {
	return &call{state: StateUnsent, trace: []State{StateUnsent}}
}

// advance moves to the next state; it never skips one
func (c *call) advance() State {
	c.state = c.state.next()
	c.trace = append(c.trace, c.state)
	return c.state
}

func (c *call) fail() {
	c.state = StateFailed
	c.trace = append(c.trace, StateFailed)
}
