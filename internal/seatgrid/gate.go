package seatgrid

// GateStatus is the state of the single-flight guard over seat confirmation.
type GateStatus int

const (
	// Idle means no confirmation is in flight.
	Idle GateStatus = iota
	// Submitting means the seat mutation request is outstanding.
	Submitting
	// AwaitingServerAck means the request succeeded and the matching
	// order record has not arrived yet.
	AwaitingServerAck
)

func (s GateStatus) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case AwaitingServerAck:
		return "awaiting-ack"
	default:
		return "unknown"
	}
}

// Gate enforces at most one confirmation in flight:
//
//	Idle -> Submitting -> AwaitingServerAck -> Idle
//	        Submitting -> Idle (request failed)
//
// The zero value is an Idle gate.  Gate is not safe for concurrent use;
// the Grid serializes access.
type Gate struct {
	status GateStatus
}

// Status returns the current state.
func (g *Gate) Status() GateStatus { return g.status }

// Begin moves Idle -> Submitting and reports whether it did.  Any other
// starting state leaves the gate unchanged.
func (g *Gate) Begin() bool {
	if g.status != Idle {
		return false
	}
	g.status = Submitting
	return true
}

// Succeeded moves Submitting -> AwaitingServerAck.
func (g *Gate) Succeeded() {
	if g.status == Submitting {
		g.status = AwaitingServerAck
	}
}

// Failed moves Submitting -> Idle.
func (g *Gate) Failed() {
	if g.status == Submitting {
		g.status = Idle
	}
}

// set is used by the sync rule, the only path allowed to close
// AwaitingServerAck.
func (g *Gate) set(s GateStatus) { g.status = s }
