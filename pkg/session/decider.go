package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/yourusername/bgledger/pkg/engine"
)

// ErrNoCandidate is returned when a decider is asked for a move it cannot
// supply.
var ErrNoCandidate = errors.New("no candidate sub-move")

// Random plays uniformly among the legal sub-moves and answers the cube with
// fixed probabilities. It carries no strategy and exists to exercise the
// protocol end to end.
type Random struct {
	mu     sync.Mutex
	r      *rand.Rand
	Double float64 // probability of offering when allowed
	Take   float64 // probability of accepting an offer
}

// NewRandom creates a Random decider that never doubles and always takes.
func NewRandom(r *rand.Rand) *Random {
	return &Random{r: r, Take: 1}
}

func (d *Random) NextSubMove(_ context.Context, view engine.PlyView) (engine.SubMove, error) {
	legal := view.Legal()
	if len(legal) == 0 {
		return engine.SubMove{}, ErrNoCandidate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return legal[d.r.IntN(len(legal))], nil
}

func (d *Random) OfferDouble(context.Context, *engine.Snapshot) (bool, error) {
	return d.chance(d.Double), nil
}

func (d *Random) AcceptDouble(context.Context, *engine.Snapshot) (bool, error) {
	return d.chance(d.Take), nil
}

func (d *Random) chance(p float64) bool {
	if p <= 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.r.Float64() < p
}

// Scripted replays fixed sub-moves in order and answers the cube with fixed
// choices. A rejected candidate is skipped, so a script may list alternatives.
type Scripted struct {
	mu     sync.Mutex
	moves  []engine.SubMove
	Offer  bool
	Accept bool
}

// NewScripted creates a Scripted decider over moves.
func NewScripted(moves ...engine.SubMove) *Scripted {
	return &Scripted{moves: moves}
}

func (d *Scripted) NextSubMove(context.Context, engine.PlyView) (engine.SubMove, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.moves) == 0 {
		return engine.SubMove{}, ErrNoCandidate
	}
	m := d.moves[0]
	d.moves = d.moves[1:]
	return m, nil
}

// Remaining returns how many scripted sub-moves are left.
func (d *Scripted) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.moves)
}

func (d *Scripted) OfferDouble(context.Context, *engine.Snapshot) (bool, error) {
	return d.Offer, nil
}

func (d *Scripted) AcceptDouble(context.Context, *engine.Snapshot) (bool, error) {
	return d.Accept, nil
}
