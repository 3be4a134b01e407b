package engine

import (
	"context"
	"fmt"
)

// transitions lists the statuses that may be observed after each status. A
// status may always be observed again since reads can precede the next write.
var transitions = map[Status][]Status{
	StatusInit:           {StatusInit, StatusDecideOrder},
	StatusDecideOrder:    {StatusDecideOrder, StatusTurnDecision},
	StatusTurnDecision:   {StatusTurnDecision, StatusMoveInProgress, StatusDoubleOffered},
	StatusMoveInProgress: {StatusMoveInProgress, StatusTurnDecision, StatusFinished},
	StatusDoubleOffered:  {StatusDoubleOffered, StatusTurnDecision, StatusFinished},
	StatusFinished:       {StatusFinished},
}

// Reachable reports whether to can be observed after from, allowing for
// intermediate statuses missed between two reads.
func Reachable(from, to Status) bool {
	seen := map[Status]bool{from: true}
	queue := []Status{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			return true
		}
		for _, next := range transitions[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// Decider makes every choice a party faces. The machine asks it only for
// choices that are legal on the current snapshot.
type Decider interface {
	MoveSource
	// OfferDouble is asked at the start of the party's turn when doubling is allowed.
	OfferDouble(ctx context.Context, s *Snapshot) (bool, error)
	// AcceptDouble answers a double offered by the opponent.
	AcceptDouble(ctx context.Context, s *Snapshot) (bool, error)
}

// Decision is what the machine wants done after a snapshot.
type Decision struct {
	Action   *Action     // nil means wait for the opponent or the ledger
	Turn     *TurnResult // set for Move actions
	Finished bool
	Outcome  Outcome
}

// Machine tracks one party's view of the protocol.
type Machine struct {
	self      Player
	initiator bool
	nonce     [NonceSize]byte
	last      Status
	counter   uint32
	observed  bool
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// AsInitiator makes the party responsible for submitting Init with nonce.
func AsInitiator(nonce [NonceSize]byte) MachineOption {
	return func(m *Machine) {
		m.initiator = true
		m.nonce = nonce
	}
}

// NewMachine creates the state machine for party self.
func NewMachine(self Player, opts ...MachineOption) *Machine {
	m := &Machine{self: self}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Self returns the party the machine plays for.
func (m *Machine) Self() Player {
	return m.self
}

// Observe checks s against the last observed status and records it.
func (m *Machine) Observe(s *Snapshot) error {
	if m.observed && !Reachable(m.last, s.Status) {
		return &ProtocolDesyncError{From: m.last, To: s.Status}
	}
	if m.observed && s.Counter < m.counter {
		return &ProtocolDesyncError{From: m.last, To: s.Status,
			Reason: fmt.Sprintf("record counter went back from %d to %d", m.counter, s.Counter)}
	}
	if err := s.CheckInvariants(); err != nil {
		return fmt.Errorf("record invariant: %w", err)
	}
	m.last = s.Status
	m.counter = s.Counter
	m.observed = true
	return nil
}

// Decide returns the next action for this party on snapshot s.
func (m *Machine) Decide(ctx context.Context, s *Snapshot, d Decider) (Decision, error) {
	act := func(a Action) (Decision, error) { return Decision{Action: &a}, nil }

	switch s.Status {
	case StatusInit:
		if m.initiator {
			return act(InitAction(m.nonce))
		}
		return Decision{}, nil

	case StatusDecideOrder:
		if s.Dice[m.self.Index()] == 0 {
			return act(RollAction())
		}
		return Decision{}, nil

	case StatusTurnDecision:
		if s.Turn != m.self {
			return Decision{}, nil
		}
		if CanDouble(s, m.self) {
			offer, err := d.OfferDouble(ctx, s)
			if err != nil {
				return Decision{}, err
			}
			if offer {
				return act(DoubleAction())
			}
		}
		return act(RollAction())

	case StatusDoubleOffered:
		if !MayRespond(s, m.self) {
			return Decision{}, nil
		}
		accept, err := d.AcceptDouble(ctx, s)
		if err != nil {
			return Decision{}, err
		}
		return act(ResponseAction(accept))

	case StatusMoveInProgress:
		if s.Turn != m.self {
			return Decision{}, nil
		}
		res, err := PlayTurn(ctx, s, m.self, d)
		if err != nil {
			return Decision{}, err
		}
		a := res.Action()
		return Decision{Action: &a, Turn: res}, nil

	case StatusFinished:
		return Decision{Finished: true, Outcome: OutcomeOf(s)}, nil
	}

	return Decision{}, &ProtocolDesyncError{From: m.last, To: s.Status}
}
