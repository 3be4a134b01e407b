package match

import (
	"sync"

	"github.com/yourusername/bgledger/pkg/engine"
)

// Recorder turns a game's actions into recorded match actions. Record takes
// every applied action from the ledger and is exact. Observe works from read
// snapshots; when reads skip a record the game is marked Incomplete instead
// of guessing what happened in between.
type Recorder struct {
	mu    sync.Mutex
	match *Match
	game  *Game
	prev  *engine.Snapshot
}

// NewRecorder records into m.
func NewRecorder(m *Match) *Recorder {
	return &Recorder{match: m}
}

// Match returns the match being recorded.
func (r *Recorder) Match() *Match {
	return r.match
}

// Record records one action applied by party, turning prev into next. prev
// is nil for Init. Its signature matches ledger.ApplyFunc.
func (r *Recorder) Record(party engine.Player, a engine.Action, prev, next *engine.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.Op == engine.OpInit || r.game == nil || r.game.GameID != next.GameID {
		r.game = r.match.NewGame(next.GameID)
	}
	switch a.Op {
	case engine.OpRoll:
		if prev.Status == engine.StatusTurnDecision {
			r.game.AddRoll(party, next.Dice)
		}
	case engine.OpDouble:
		r.game.AddDouble(party, prev.Multiplier*2)
	case engine.OpDoubleResponse:
		if a.Accept {
			r.game.AddTake(party)
		} else {
			r.game.AddPass(party)
		}
	case engine.OpMove:
		r.game.AddMove(party, a.Moves)
	}
	if next.Status == engine.StatusFinished {
		r.game.Finish(engine.OutcomeOf(next))
	}
}

// Observe records the action between the previous snapshot and s. Repeated
// reads of one record are ignored.
func (r *Recorder) Observe(s *engine.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.Status == engine.StatusInit {
		return
	}
	if r.game == nil || r.game.GameID != s.GameID {
		r.game = r.match.NewGame(s.GameID)
		r.prev = nil
	}
	prev := r.prev
	if prev != nil && prev.Counter == s.Counter {
		return
	}
	r.prev = s.Clone()

	switch {
	case r.game.Incomplete:
	case prev == nil || prev.Status == engine.StatusDecideOrder:
		// Only order rolls, which are not recorded, may have been missed.
		r.observeStart(s)
	case s.Counter != prev.Counter+1:
		r.game.Incomplete = true
	default:
		r.observeStep(prev, s)
	}

	if s.Status == engine.StatusFinished {
		r.game.Finish(engine.OutcomeOf(s))
	}
}

func (r *Recorder) observeStart(s *engine.Snapshot) {
	untouched := s.LastMoves == [4]engine.SubMove{} && !s.LastDoubled.Valid()
	switch {
	case untouched && (s.Status == engine.StatusDecideOrder || s.Status == engine.StatusTurnDecision):
	case untouched && s.Status == engine.StatusMoveInProgress:
		r.game.AddRoll(s.Turn, s.Dice)
	default:
		r.game.Incomplete = true
	}
}

// observeStep records the single action that turned prev into s.
func (r *Recorder) observeStep(prev, s *engine.Snapshot) {
	switch {
	case prev.Status == engine.StatusTurnDecision && s.Status == engine.StatusMoveInProgress:
		r.game.AddRoll(s.Turn, s.Dice)
	case prev.Status == engine.StatusTurnDecision && s.Status == engine.StatusDoubleOffered:
		r.game.AddDouble(s.Turn, s.Multiplier*2)
	case prev.Status == engine.StatusDoubleOffered && s.Status == engine.StatusTurnDecision:
		r.game.AddTake(s.Turn.Opponent())
	case prev.Status == engine.StatusDoubleOffered && s.Status == engine.StatusFinished:
		r.game.AddPass(s.Turn.Opponent())
	case prev.Status == engine.StatusMoveInProgress:
		var moves []engine.SubMove
		for _, m := range s.LastMoves {
			if !m.IsZero() {
				moves = append(moves, m)
			}
		}
		r.game.AddMove(prev.Turn, moves)
	default:
		r.game.Incomplete = true
	}
}
