// Package ledger is the authoritative game record. It validates submitted
// actions, rolls the dice and serializes every game into the fixed binary
// record layout read by clients.
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/yourusername/bgledger/pkg/engine"
)

var (
	// ErrNoRecord is returned by reads before the game has been initialised.
	ErrNoRecord = errors.New("record not initialised")
	// ErrMalformedAction is returned for actions that do not decode.
	ErrMalformedAction = errors.New("malformed action")
)

// DiceSource produces die values in 1..6.
type DiceSource interface {
	Roll() int
}

type randomDice struct {
	mu sync.Mutex
	r  *rand.Rand
}

// RandomDice rolls from r. It is safe for concurrent use.
func RandomDice(r *rand.Rand) DiceSource {
	return &randomDice{r: r}
}

func (d *randomDice) Roll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return 1 + d.r.IntN(6)
}

type fixedDice struct {
	mu     sync.Mutex
	values []int
	next   int
}

// FixedDice cycles through values. It is meant for tests and replays.
func FixedDice(values ...int) DiceSource {
	return &fixedDice{values: values}
}

func (d *fixedDice) Roll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.values[d.next%len(d.values)]
	d.next++
	return v
}

// Ledger holds one game record and serializes submissions to it.
type Ledger struct {
	mu     sync.Mutex
	snap   *engine.Snapshot
	dice   DiceSource
	logger *log.Logger

	subs    map[int]chan []byte
	nextSub int
	hooks   []ApplyFunc
}

// ApplyFunc is called with every accepted action, in order. prev is nil for
// Init. It runs under the ledger lock and must not call back into the ledger.
type ApplyFunc func(party engine.Player, a engine.Action, prev, next *engine.Snapshot)

// OnApply registers fn to see every action accepted from now on.
func (l *Ledger) OnApply(fn ApplyFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, fn)
}

// New creates an uninitialised ledger. A nil logger discards output.
func New(dice DiceSource, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Ledger{
		dice:   dice,
		logger: logger,
		subs:   make(map[int]chan []byte),
	}
}

// Record returns the encoded record.
func (l *Ledger) Record() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.snap == nil {
		return nil, ErrNoRecord
	}
	return engine.EncodeRecord(l.snap), nil
}

// Snapshot returns a copy of the current state.
func (l *Ledger) Snapshot() (*engine.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.snap == nil {
		return nil, ErrNoRecord
	}
	return l.snap.Clone(), nil
}

// Subscribe returns a channel receiving the encoded record after every
// accepted action. Slow subscribers only see the latest record.
func (l *Ledger) Subscribe() (<-chan []byte, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextSub
	l.nextSub++
	ch := make(chan []byte, 1)
	l.subs[id] = ch
	if l.snap != nil {
		ch <- engine.EncodeRecord(l.snap)
	}

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(ch)
		}
	}
}

// Apply validates and applies an encoded action submitted by party. It
// returns the record counter after the action.
func (l *Ledger) Apply(party engine.Player, raw []byte) (uint32, error) {
	a, err := engine.DecodeAction(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedAction, err)
	}
	if !party.Valid() {
		return 0, fmt.Errorf("%w: unknown party %d", engine.ErrActionNotAllowed, party)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := l.transition(party, a)
	if err != nil {
		l.logger.Debug("rejected action", "party", party, "action", a, "err", err)
		return 0, err
	}
	next.Counter++
	prev := l.snap
	l.snap = next
	for _, fn := range l.hooks {
		fn(party, a, prev, next.Clone())
	}
	l.logger.Debug("applied action", "party", party, "action", a, "status", next.Status, "turn", next.Turn, "counter", next.Counter)
	l.publish()
	return next.Counter, nil
}

func (l *Ledger) publish() {
	rec := engine.EncodeRecord(l.snap)
	for _, ch := range l.subs {
		select {
		case <-ch:
		default:
		}
		ch <- rec
	}
}

func notAllowed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", engine.ErrActionNotAllowed, fmt.Sprintf(format, args...))
}

// transition computes the next state on a copy; the stored snapshot is only
// replaced once the action is fully validated.
func (l *Ledger) transition(party engine.Player, a engine.Action) (*engine.Snapshot, error) {
	if l.snap == nil {
		if a.Op != engine.OpInit {
			return nil, notAllowed("%s before init", a.Op)
		}
		return &engine.Snapshot{
			GameID:     binary.LittleEndian.Uint64(a.Nonce[:]),
			Status:     engine.StatusDecideOrder,
			Multiplier: 1,
			Position:   engine.StartingPosition(),
		}, nil
	}

	s := l.snap.Clone()
	switch {
	case a.Op == engine.OpInit:
		return nil, notAllowed("game already initialised")
	case s.Status == engine.StatusFinished:
		return nil, notAllowed("game finished")
	}

	switch a.Op {
	case engine.OpRoll:
		return l.roll(s, party)

	case engine.OpDouble:
		if !engine.CanDouble(s, party) {
			return nil, notAllowed("%s may not double now", party)
		}
		s.Status = engine.StatusDoubleOffered
		return s, nil

	case engine.OpDoubleResponse:
		if !engine.MayRespond(s, party) {
			return nil, notAllowed("%s has no double to answer", party)
		}
		if a.Accept {
			s.Multiplier *= 2
			s.LastDoubled = s.Turn
			s.Status = engine.StatusTurnDecision
		} else {
			s.Winner = s.Turn
			s.Status = engine.StatusFinished
		}
		return s, nil

	case engine.OpMove:
		return move(s, party, a.Moves)
	}
	return nil, notAllowed("unsupported opcode %s", a.Op)
}

func (l *Ledger) roll(s *engine.Snapshot, party engine.Player) (*engine.Snapshot, error) {
	switch s.Status {
	case engine.StatusDecideOrder:
		idx := party.Index()
		if s.Dice[idx] != 0 {
			return nil, notAllowed("%s already rolled for order", party)
		}
		s.Dice[idx] = l.dice.Roll()
		a, b := s.Dice[0], s.Dice[1]
		switch {
		case a == 0 || b == 0:
		case a == b:
			s.Dice = [2]int{}
		default:
			s.Turn = engine.PlayerA
			if b > a {
				s.Turn = engine.PlayerB
			}
			s.Dice = [2]int{}
			s.Status = engine.StatusTurnDecision
		}
		return s, nil

	case engine.StatusTurnDecision:
		if s.Turn != party {
			return nil, notAllowed("not %s's turn", party)
		}
		s.Dice = [2]int{l.dice.Roll(), l.dice.Roll()}
		s.MaxSubMoves, s.Constraint = engine.OpeningConstraint(s.Position, party, s.Dice)
		s.Status = engine.StatusMoveInProgress
		return s, nil
	}
	return nil, notAllowed("cannot roll in status %s", s.Status)
}

func move(s *engine.Snapshot, party engine.Player, moves []engine.SubMove) (*engine.Snapshot, error) {
	if s.Status != engine.StatusMoveInProgress {
		return nil, notAllowed("cannot move in status %s", s.Status)
	}
	if s.Turn != party {
		return nil, notAllowed("not %s's turn", party)
	}
	if len(moves) > s.MaxSubMoves {
		return nil, notAllowed("%d sub-moves, at most %d allowed", len(moves), s.MaxSubMoves)
	}

	pos := s.Position
	steps := s.Steps()
	constraint := s.Constraint
	for _, m := range moves {
		d, err := engine.ApplySubMove(pos, party, steps, m, constraint)
		if err != nil {
			return nil, err
		}
		pos = d.Position
		steps = removeStep(steps, m.Step)
		constraint = nil
	}
	if len(moves) < s.MaxSubMoves && engine.HasAnyLegalMove(pos, party, steps) {
		return nil, notAllowed("ply incomplete: %d of %d sub-moves played", len(moves), s.MaxSubMoves)
	}

	s.Position = pos
	s.LastMoves = [4]engine.SubMove{}
	copy(s.LastMoves[:], moves)
	s.Dice = [2]int{}
	s.MaxSubMoves = 0
	s.Constraint = nil
	if pos.Off[party.Index()] == engine.CheckersPerSide {
		s.Winner = party
		s.Status = engine.StatusFinished
		return s, nil
	}
	s.Turn = party.Opponent()
	s.Status = engine.StatusTurnDecision
	return s, nil
}

func removeStep(steps []int, step int) []int {
	for i, s := range steps {
		if s == step {
			return append(steps[:i:i], steps[i+1:]...)
		}
	}
	return steps
}
