package engine

import (
	"errors"
	"fmt"
)

// MoveErrorKind classifies a rejected sub-move.
type MoveErrorKind int

const (
	OutOfRange MoveErrorKind = iota + 1
	NoSuchChecker
	DestinationBlocked
	MoveNotInAvailableDice
	DisallowedOpeningOrder
	BearOffNotEligible
	BarEntryRequired
)

func (k MoveErrorKind) String() string {
	switch k {
	case OutOfRange:
		return "out of range"
	case NoSuchChecker:
		return "no checker on start point"
	case DestinationBlocked:
		return "destination blocked"
	case MoveNotInAvailableDice:
		return "step not in available dice"
	case DisallowedOpeningOrder:
		return "disallowed opening order"
	case BearOffNotEligible:
		return "bear-off not eligible"
	case BarEntryRequired:
		return "must enter from the bar"
	}
	return "unknown move error"
}

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrOutOfRange             = &MoveError{Kind: OutOfRange}
	ErrNoSuchChecker          = &MoveError{Kind: NoSuchChecker}
	ErrDestinationBlocked     = &MoveError{Kind: DestinationBlocked}
	ErrMoveNotInAvailableDice = &MoveError{Kind: MoveNotInAvailableDice}
	ErrDisallowedOpeningOrder = &MoveError{Kind: DisallowedOpeningOrder}
	ErrBearOffNotEligible     = &MoveError{Kind: BearOffNotEligible}
	ErrBarEntryRequired       = &MoveError{Kind: BarEntryRequired}
)

// MoveError is a recoverable rejection of a candidate sub-move. The working
// position is unchanged when one is returned.
type MoveError struct {
	Kind MoveErrorKind
	Move SubMove
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("illegal move %d/%d: %s", e.Move.Start, e.Move.Step, e.Kind)
}

// Is matches any MoveError of the same kind.
func (e *MoveError) Is(target error) bool {
	t, ok := target.(*MoveError)
	return ok && t.Kind == e.Kind
}

func moveErr(kind MoveErrorKind, m SubMove) error {
	return &MoveError{Kind: kind, Move: m}
}

// DecodeError reports a short or malformed record. It is fatal to a session.
type DecodeError struct {
	Field  string
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at offset %d: %s", e.Field, e.Offset, e.Reason)
}

// ProtocolDesyncError reports an observed status that cannot follow the last
// observed one.
type ProtocolDesyncError struct {
	From   Status
	To     Status
	Reason string
}

func (e *ProtocolDesyncError) Error() string {
	if e.Reason != "" {
		return "protocol desync: " + e.Reason
	}
	return fmt.Sprintf("protocol desync: status %s cannot follow %s", e.To, e.From)
}

// SubmissionError wraps a failed submission. Confirmed is true only when the
// ledger explicitly rejected the action, so it is known not to be applied.
type SubmissionError struct {
	Confirmed bool
	Err       error
}

func (e *SubmissionError) Error() string {
	if e.Confirmed {
		return fmt.Sprintf("submission rejected: %v", e.Err)
	}
	return fmt.Sprintf("submission not confirmed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// ErrActionNotAllowed is returned by the ledger for actions that do not fit
// the current status, turn or cube state.
var ErrActionNotAllowed = errors.New("action not allowed")

// ErrUnsatisfiableConstraint is returned by PlayTurn when the record's
// first-move constraint admits none of the legal sub-moves.
var ErrUnsatisfiableConstraint = errors.New("first-move constraint admits no legal sub-move")

// IsMoveError reports whether err carries a MoveError.
func IsMoveError(err error) bool {
	var me *MoveError
	return errors.As(err, &me)
}
