package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// layout builds a position from point->count maps. Key 0 is the bar. Checkers
// not placed are counted as borne off.
func layout(a, b map[int]int) Position {
	var pos Position
	for i, side := range []map[int]int{a, b} {
		p := Player(i + 1)
		placed := 0
		for point, n := range side {
			placed += n
			if point == 0 {
				pos.Bar[p.Index()] = n
				continue
			}
			pos.Board[point-1] = n * p.sign()
		}
		pos.Off[p.Index()] = CheckersPerSide - placed
	}
	return pos
}

func randomPosition(r *rand.Rand) Position {
	var pos Position
	for _, p := range []Player{PlayerA, PlayerB} {
		left := CheckersPerSide
		if r.IntN(4) == 0 {
			pos.Bar[p.Index()] = r.IntN(3)
			left -= pos.Bar[p.Index()]
		}
		if r.IntN(4) == 0 {
			pos.Off[p.Index()] = r.IntN(5)
			left -= pos.Off[p.Index()]
		}
		for left > 0 {
			point := 1 + r.IntN(24)
			if pos.Owner(point) == p.Opponent() {
				continue
			}
			pos.Board[point-1] += p.sign()
			left--
		}
	}
	return pos
}

func randomDice(r *rand.Rand) [2]int {
	return [2]int{1 + r.IntN(6), 1 + r.IntN(6)}
}

func snapshotAt(pos Position, turn Player, dice [2]int) *Snapshot {
	return &Snapshot{
		Status:     StatusMoveInProgress,
		Turn:       turn,
		Dice:       dice,
		Multiplier: 1,
		Position:   pos,
	}
}

// script replays fixed candidates and keeps the errors it was shown.
type script struct {
	moves  []SubMove
	seen   []error
	offer  bool
	accept bool
}

func (s *script) NextSubMove(_ context.Context, view PlyView) (SubMove, error) {
	s.seen = append(s.seen, view.LastError)
	if len(s.moves) == 0 {
		return SubMove{}, fmt.Errorf("script exhausted")
	}
	m := s.moves[0]
	s.moves = s.moves[1:]
	return m, nil
}

func (s *script) OfferDouble(context.Context, *Snapshot) (bool, error)  { return s.offer, nil }
func (s *script) AcceptDouble(context.Context, *Snapshot) (bool, error) { return s.accept, nil }
