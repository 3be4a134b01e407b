package engine

import (
	"context"
	"errors"
)

// PlyView is what a MoveSource sees when asked for the next sub-move.
type PlyView struct {
	Player     Player
	Snapshot   *Snapshot // authoritative record the ply started from
	Position   Position  // working position with accepted sub-moves applied
	Steps      []int     // steps still available
	Played     []SubMove
	Constraint []SubMove // nil once the first sub-move is accepted
	LastError  error     // rejection of the previous candidate, if any
}

// Legal lists the legal sub-moves of the view.
func (v PlyView) Legal() []SubMove {
	return LegalSubMoves(v.Position, v.Player, v.Steps, v.Constraint)
}

// MoveSource supplies candidate sub-moves. It may be a human prompt, a script
// or a picker; the turn engine validates every candidate.
type MoveSource interface {
	NextSubMove(ctx context.Context, view PlyView) (SubMove, error)
}

// MoveSourceFunc adapts a function to MoveSource.
type MoveSourceFunc func(ctx context.Context, view PlyView) (SubMove, error)

func (f MoveSourceFunc) NextSubMove(ctx context.Context, view PlyView) (SubMove, error) {
	return f(ctx, view)
}

// TurnResult is a completed ply.
type TurnResult struct {
	Player     Player
	Moves      []SubMove
	Position   Position
	Rejections int
}

// Action returns the Move action to submit for the ply.
func (r *TurnResult) Action() Action {
	return MoveAction(r.Moves)
}

// PlayTurn drives one ply for p from the authoritative snapshot s. Candidates
// are requested from src until the sub-move limit is reached or no legal
// move remains for the unused steps. A rejected candidate is reported back to
// src through PlyView.LastError and consumes nothing. A constraint that
// rules out every legal first sub-move fails with ErrUnsatisfiableConstraint
// instead of asking src for a candidate it cannot supply.
func PlayTurn(ctx context.Context, s *Snapshot, p Player, src MoveSource) (*TurnResult, error) {
	steps := s.Steps()
	limit := len(steps)
	if s.MaxSubMoves > 0 && s.MaxSubMoves < limit {
		limit = s.MaxSubMoves
	}

	res := &TurnResult{Player: p, Position: s.Position}
	constraint := s.Constraint
	var lastErr error

	for len(res.Moves) < limit && HasAnyLegalMove(res.Position, p, steps) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if constraint != nil && len(LegalSubMoves(res.Position, p, steps, constraint)) == 0 {
			return nil, ErrUnsatisfiableConstraint
		}

		cand, err := src.NextSubMove(ctx, PlyView{
			Player:     p,
			Snapshot:   s,
			Position:   res.Position,
			Steps:      steps,
			Played:     res.Moves,
			Constraint: constraint,
			LastError:  lastErr,
		})
		if err != nil {
			return nil, err
		}

		d, err := ApplySubMove(res.Position, p, steps, cand, constraint)
		if err != nil {
			var me *MoveError
			if !errors.As(err, &me) {
				return nil, err
			}
			lastErr = err
			res.Rejections++
			continue
		}

		res.Position = d.Position
		res.Moves = append(res.Moves, cand)
		steps = removeStep(steps, cand.Step)
		constraint = nil
		lastErr = nil
	}

	return res, nil
}
