// Package session drives one party through a game: it reads the ledger
// record, asks the state machine what to do, submits the action and waits for
// the record to move on.
package session

import (
	"context"
	"errors"

	"github.com/yourusername/bgledger/internal/ledger"
	"github.com/yourusername/bgledger/pkg/engine"
)

// ErrNoRecord is returned by a SnapshotSource before the game exists.
var ErrNoRecord = ledger.ErrNoRecord

// ErrTransient marks read or submit failures that may succeed when retried.
var ErrTransient = errors.New("transient failure")

// SnapshotSource reads the raw ledger record.
type SnapshotSource interface {
	Read(ctx context.Context) ([]byte, error)
}

// ActionSink submits an encoded action. A nil error means the ledger
// confirmed the action.
type ActionSink interface {
	Submit(ctx context.Context, action []byte) error
}

// Local adapts an in-process ledger for one party.
type Local struct {
	Ledger *ledger.Ledger
	Party  engine.Player
}

func (l Local) Read(context.Context) ([]byte, error) {
	return l.Ledger.Record()
}

func (l Local) Submit(_ context.Context, action []byte) error {
	if _, err := l.Ledger.Apply(l.Party, action); err != nil {
		return &engine.SubmissionError{Confirmed: true, Err: err}
	}
	return nil
}
