package ledger

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/bgledger/pkg/engine"
)

func encode(t *testing.T, a engine.Action) []byte {
	t.Helper()
	b, err := a.Encode()
	require.NoError(t, err)
	return b
}

func apply(t *testing.T, l *Ledger, p engine.Player, a engine.Action) {
	t.Helper()
	_, err := l.Apply(p, encode(t, a))
	require.NoError(t, err, "%s by %s", a, p)
}

func snapshot(t *testing.T, l *Ledger) *engine.Snapshot {
	t.Helper()
	rec, err := l.Record()
	require.NoError(t, err)
	s, err := engine.Decode(rec)
	require.NoError(t, err)
	return s
}

var nonce = [engine.NonceSize]byte{1, 0, 0, 0, 0, 0, 0, 0}

func TestLedgerRequiresInit(t *testing.T) {
	l := New(FixedDice(1), nil)

	_, err := l.Record()
	assert.ErrorIs(t, err, ErrNoRecord)

	_, err = l.Apply(engine.PlayerA, encode(t, engine.RollAction()))
	assert.ErrorIs(t, err, engine.ErrActionNotAllowed)

	_, err = l.Apply(engine.PlayerA, []byte{7})
	assert.ErrorIs(t, err, ErrMalformedAction)

	counter, err := l.Apply(engine.PlayerA, encode(t, engine.InitAction(nonce)))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), counter)

	s := snapshot(t, l)
	assert.Equal(t, binary.LittleEndian.Uint64(nonce[:]), s.GameID)
	assert.Equal(t, engine.StatusDecideOrder, s.Status)
	assert.Equal(t, 1, s.Multiplier)
	assert.Equal(t, engine.StartingPosition(), s.Position)

	_, err = l.Apply(engine.PlayerB, encode(t, engine.InitAction(nonce)))
	assert.ErrorIs(t, err, engine.ErrActionNotAllowed)
}

func TestLedgerGameFlow(t *testing.T) {
	l := New(FixedDice(3, 3, 5, 2, 3, 1), nil)
	apply(t, l, engine.PlayerA, engine.InitAction(nonce))

	// Tied order roll is rolled again.
	apply(t, l, engine.PlayerA, engine.RollAction())
	_, err := l.Apply(engine.PlayerA, encode(t, engine.RollAction()))
	assert.ErrorIs(t, err, engine.ErrActionNotAllowed, "one order roll per party")
	apply(t, l, engine.PlayerB, engine.RollAction())
	s := snapshot(t, l)
	assert.Equal(t, engine.StatusDecideOrder, s.Status)
	assert.Equal(t, [2]int{}, s.Dice)

	apply(t, l, engine.PlayerA, engine.RollAction())
	apply(t, l, engine.PlayerB, engine.RollAction())
	s = snapshot(t, l)
	assert.Equal(t, engine.StatusTurnDecision, s.Status)
	assert.Equal(t, engine.PlayerA, s.Turn)

	apply(t, l, engine.PlayerA, engine.DoubleAction())
	apply(t, l, engine.PlayerB, engine.ResponseAction(true))
	s = snapshot(t, l)
	assert.Equal(t, engine.StatusTurnDecision, s.Status)
	assert.Equal(t, engine.PlayerA, s.Turn, "proposer still rolls next")
	assert.Equal(t, 2, s.Multiplier)
	assert.Equal(t, engine.PlayerA, s.LastDoubled)

	_, err = l.Apply(engine.PlayerA, encode(t, engine.DoubleAction()))
	assert.ErrorIs(t, err, engine.ErrActionNotAllowed, "cube owner cannot redouble")

	apply(t, l, engine.PlayerA, engine.RollAction())
	s = snapshot(t, l)
	assert.Equal(t, engine.StatusMoveInProgress, s.Status)
	assert.Equal(t, [2]int{3, 1}, s.Dice)
	assert.Equal(t, 2, s.MaxSubMoves)
	assert.Contains(t, s.Constraint, engine.SubMove{Start: 17, Step: 3})

	_, err = l.Apply(engine.PlayerB, encode(t, engine.MoveAction(nil)))
	assert.ErrorIs(t, err, engine.ErrActionNotAllowed)

	_, err = l.Apply(engine.PlayerA, encode(t, engine.MoveAction([]engine.SubMove{{Start: 17, Step: 3}})))
	assert.ErrorIs(t, err, engine.ErrActionNotAllowed, "second die is still playable")

	_, err = l.Apply(engine.PlayerA, encode(t, engine.MoveAction([]engine.SubMove{{Start: 1, Step: 5}, {Start: 1, Step: 1}})))
	assert.ErrorIs(t, err, engine.ErrMoveNotInAvailableDice)

	before := snapshot(t, l).Counter
	apply(t, l, engine.PlayerA, engine.MoveAction([]engine.SubMove{{Start: 17, Step: 3}, {Start: 19, Step: 1}}))
	s = snapshot(t, l)
	assert.Equal(t, before+1, s.Counter)
	assert.Equal(t, engine.StatusTurnDecision, s.Status)
	assert.Equal(t, engine.PlayerB, s.Turn)
	assert.Equal(t, -2, s.Position.Board[19])
	assert.Equal(t, [4]engine.SubMove{{Start: 17, Step: 3}, {Start: 19, Step: 1}}, s.LastMoves)
	assert.Equal(t, [2]int{}, s.Dice)
	assert.Nil(t, s.Constraint)

	apply(t, l, engine.PlayerB, engine.DoubleAction())
	apply(t, l, engine.PlayerA, engine.ResponseAction(false))
	s = snapshot(t, l)
	assert.Equal(t, engine.StatusFinished, s.Status)
	assert.Equal(t, engine.PlayerB, s.Winner)
	assert.Equal(t, 2, s.Multiplier, "decline keeps the multiplier")

	_, err = l.Apply(engine.PlayerA, encode(t, engine.RollAction()))
	assert.ErrorIs(t, err, engine.ErrActionNotAllowed)
}

func TestLedgerAcceptedDoublesMultiply(t *testing.T) {
	for n := 0; n <= 6; n++ {
		l := New(FixedDice(1), nil)
		apply(t, l, engine.PlayerA, engine.InitAction(nonce))
		l.snap.Status = engine.StatusTurnDecision

		proposer := engine.PlayerA
		for i := 0; i < n; i++ {
			l.snap.Turn = proposer
			apply(t, l, proposer, engine.DoubleAction())
			apply(t, l, proposer.Opponent(), engine.ResponseAction(true))
			proposer = proposer.Opponent()
		}
		s := snapshot(t, l)
		assert.Equal(t, 1<<n, s.Multiplier)

		l.snap.Turn = proposer
		_, err := l.Apply(proposer, encode(t, engine.DoubleAction()))
		if n == 6 {
			assert.ErrorIs(t, err, engine.ErrActionNotAllowed, "cube is capped")
			continue
		}
		require.NoError(t, err)
		apply(t, l, proposer.Opponent(), engine.ResponseAction(false))
		s = snapshot(t, l)
		assert.Equal(t, engine.StatusFinished, s.Status)
		assert.Equal(t, proposer, s.Winner)
		assert.Equal(t, 1<<n, s.Multiplier)
	}
}

func TestLedgerEmptyMoveWhenBlocked(t *testing.T) {
	l := New(FixedDice(6, 6), nil)
	apply(t, l, engine.PlayerA, engine.InitAction(nonce))
	pos := engine.StartingPosition()
	pos.Board[23] = 1
	pos.Bar[1] = 1
	l.snap.Position = pos
	l.snap.Status = engine.StatusTurnDecision
	l.snap.Turn = engine.PlayerB

	apply(t, l, engine.PlayerB, engine.RollAction())
	s := snapshot(t, l)
	assert.Zero(t, s.MaxSubMoves)
	assert.Nil(t, s.Constraint)

	apply(t, l, engine.PlayerB, engine.MoveAction(nil))
	assert.Equal(t, engine.PlayerA, snapshot(t, l).Turn)
}

func TestLedgerBearOffWins(t *testing.T) {
	l := New(FixedDice(6, 5), nil)
	apply(t, l, engine.PlayerA, engine.InitAction(nonce))
	var pos engine.Position
	pos.Board[0] = 2
	pos.Off = [2]int{0, 13}
	pos.Board[12] = -15
	l.snap.Position = pos
	l.snap.Status = engine.StatusTurnDecision
	l.snap.Turn = engine.PlayerB

	apply(t, l, engine.PlayerB, engine.RollAction())
	apply(t, l, engine.PlayerB, engine.MoveAction([]engine.SubMove{{Start: 1, Step: 6}, {Start: 1, Step: 5}}))
	s := snapshot(t, l)
	assert.Equal(t, engine.StatusFinished, s.Status)
	assert.Equal(t, engine.PlayerB, s.Winner)
	assert.Equal(t, engine.Outcome{Winner: engine.PlayerB, Multiplier: 1}, engine.OutcomeOf(s))
}

func TestLedgerSubscribe(t *testing.T) {
	l := New(FixedDice(4, 2), nil)
	ch, cancel := l.Subscribe()

	apply(t, l, engine.PlayerA, engine.InitAction(nonce))
	apply(t, l, engine.PlayerA, engine.RollAction())

	rec := <-ch
	s, err := engine.Decode(rec)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), s.Counter, "only the latest record is kept")

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel()
}

func TestLedgerRejectionLeavesRecord(t *testing.T) {
	l := New(FixedDice(2), nil)
	apply(t, l, engine.PlayerA, engine.InitAction(nonce))
	before, _ := l.Record()

	_, err := l.Apply(engine.NoPlayer, encode(t, engine.RollAction()))
	require.Error(t, err)
	_, err = l.Apply(engine.PlayerA, encode(t, engine.DoubleAction()))
	require.True(t, errors.Is(err, engine.ErrActionNotAllowed))

	after, _ := l.Record()
	assert.Equal(t, before, after)
}

func TestStore(t *testing.T) {
	s := NewStore(1, nil)
	_, ok := s.Get("x")
	assert.False(t, ok)

	a := s.Open("x")
	assert.Same(t, a, s.Open("x"))
	s.Open("a")
	got, ok := s.Get("x")
	assert.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, []string{"a", "x"}, s.IDs())
}

func TestLedgerOnApplySeesEveryAction(t *testing.T) {
	l := New(FixedDice(5, 2, 3, 1), nil)

	type seen struct {
		party   engine.Player
		op      engine.Opcode
		prev    uint32
		counter uint32
	}
	var got []seen
	l.OnApply(func(p engine.Player, a engine.Action, prev, next *engine.Snapshot) {
		var pc uint32
		if prev != nil {
			pc = prev.Counter
		}
		got = append(got, seen{p, a.Op, pc, next.Counter})
	})

	apply(t, l, engine.PlayerA, engine.InitAction(nonce))
	apply(t, l, engine.PlayerA, engine.RollAction())
	apply(t, l, engine.PlayerB, engine.RollAction())
	apply(t, l, engine.PlayerA, engine.RollAction())
	_, err := l.Apply(engine.PlayerA, encode(t, engine.MoveAction([]engine.SubMove{{Start: 2, Step: 3}})))
	require.Error(t, err)
	apply(t, l, engine.PlayerA, engine.MoveAction([]engine.SubMove{{Start: 17, Step: 3}, {Start: 19, Step: 1}}))

	assert.Equal(t, []seen{
		{engine.PlayerA, engine.OpInit, 0, 1},
		{engine.PlayerA, engine.OpRoll, 1, 2},
		{engine.PlayerB, engine.OpRoll, 2, 3},
		{engine.PlayerA, engine.OpRoll, 3, 4},
		{engine.PlayerA, engine.OpMove, 4, 5},
	}, got)
}
