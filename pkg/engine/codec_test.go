package engine

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFixedOffsets(t *testing.T) {
	buf := make([]byte, MinRecordSize+4)
	buf[0] = 0x2a
	buf[8] = byte(StatusMoveInProgress)
	buf[73] = 2
	buf[75], buf[76] = 3, 5
	buf[77] = 4
	buf[86] = 1
	// A: 14 on point 1 and one on the bar. B: 13 on point 24, 2 borne off.
	buf[87], buf[88] = 1, 1
	buf[89], buf[90] = 1, 14
	buf[135], buf[136] = 2, 13
	buf[140] = 2
	buf[141] = 9
	buf[145] = 2
	buf[146] = 2
	buf[147], buf[148] = 24, 3
	buf[149], buf[150] = 24, 5

	s, err := Decode(buf)
	require.NoError(t, err)

	assert.Equal(t, uint64(0x2a), s.GameID)
	assert.Equal(t, StatusMoveInProgress, s.Status)
	assert.Equal(t, PlayerB, s.Turn)
	assert.Equal(t, NoPlayer, s.Winner)
	assert.Equal(t, [2]int{3, 5}, s.Dice)
	assert.Equal(t, 4, s.Multiplier)
	assert.Equal(t, PlayerA, s.LastDoubled)
	assert.Equal(t, -14, s.Position.Board[0])
	assert.Equal(t, 13, s.Position.Board[23])
	assert.Equal(t, [2]int{1, 0}, s.Position.Bar)
	assert.Equal(t, [2]int{0, 2}, s.Position.Off)
	assert.Equal(t, uint32(9), s.Counter)
	assert.Equal(t, 2, s.MaxSubMoves)
	assert.Equal(t, []SubMove{{24, 3}, {24, 5}}, s.Constraint)
	assert.NoError(t, s.CheckInvariants())
}

func TestDecodeBarCountOffsets(t *testing.T) {
	s := NewSnapshot()
	s.Status = StatusTurnDecision
	s.Multiplier = 1
	s.Position = layout(map[int]int{0: 2, 19: 13}, map[int]int{0: 3, 6: 12})

	buf := EncodeRecord(s)
	assert.Equal(t, byte(2), buf[88])
	assert.Equal(t, byte(3), buf[138])
	assert.Equal(t, byte(0), buf[139])
}

func TestDecodeErrors(t *testing.T) {
	valid := func() []byte {
		s := startedSnapshot(StatusTurnDecision, PlayerA)
		return EncodeRecord(s)
	}

	tests := []struct {
		name  string
		buf   func() []byte
		field string
	}{
		{"short", func() []byte { return make([]byte, MinRecordSize-1) }, "record"},
		{"status", func() []byte { b := valid(); b[8] = 6; return b }, "status"},
		{"turn", func() []byte { b := valid(); b[73] = 3; return b }, "turn"},
		{"die", func() []byte { b := valid(); b[75] = 7; return b }, "dice"},
		{"multiplier", func() []byte { b := valid(); b[77] = 3; return b }, "multiplier"},
		{"owner tag", func() []byte { b := valid(); b[87+2*5] = 3; return b }, "board"},
		{"ownerless checkers", func() []byte { b := valid(); b[87+2*5+1] = 1; return b }, "board"},
		{"B tag on A's bar", func() []byte { b := valid(); b[87], b[88] = 2, 1; return b }, "board"},
		{"A tag on B's bar", func() []byte { b := valid(); b[137], b[138] = 1, 1; return b }, "board"},
		{"constraint overflow", func() []byte { b := valid(); b[146] = MaxConstraintPairs + 1; return b }, "constraint"},
		{"constraint truncated", func() []byte {
			b := valid()[:MinRecordSize+2]
			b[146] = 2
			return b
		}, "constraint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.buf())
			var de *DecodeError
			require.True(t, errors.As(err, &de), "got %v", err)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func TestDecodeEncodeRecordRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 500; i++ {
		s := &Snapshot{
			GameID:      r.Uint64(),
			Status:      Status(1 + r.IntN(5)),
			Turn:        Player(r.IntN(3)),
			Winner:      Player(r.IntN(3)),
			Dice:        [2]int{r.IntN(7), r.IntN(7)},
			Multiplier:  1 << r.IntN(7),
			LastDoubled: Player(r.IntN(3)),
			Position:    randomPosition(r),
			Counter:     r.Uint32(),
			MaxSubMoves: r.IntN(5),
		}
		s.LastMoves[0] = SubMove{Start: 1 + r.IntN(24), Step: 1 + r.IntN(6)}
		for n := r.IntN(4); n > 0; n-- {
			s.Constraint = append(s.Constraint, SubMove{Start: 1 + r.IntN(24), Step: 1 + r.IntN(6)})
		}

		got, err := Decode(EncodeRecord(s))
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
}

func TestDecodeReturnsFreshSnapshot(t *testing.T) {
	buf := EncodeRecord(startedSnapshot(StatusTurnDecision, PlayerA))
	a, err := Decode(buf)
	require.NoError(t, err)
	b, err := Decode(buf)
	require.NoError(t, err)

	a.Position.Board[0] = 0
	assert.Equal(t, -2, b.Position.Board[0])
	assert.Empty(t, b.Diff(startedSnapshot(StatusTurnDecision, PlayerA)))
	assert.Equal(t, []string{"board"}, a.Diff(b))
}

func TestActionEncode(t *testing.T) {
	tests := []struct {
		action Action
		want   []byte
	}{
		{InitAction([NonceSize]byte{9, 8, 7, 6, 5, 4, 3, 2}), []byte{0, 9, 8, 7, 6, 5, 4, 3, 2}},
		{RollAction(), []byte{1}},
		{DoubleAction(), []byte{2}},
		{ResponseAction(true), []byte{3, 1}},
		{ResponseAction(false), []byte{3, 0}},
		{MoveAction(nil), []byte{4, 0, 0, 0, 0, 0, 0, 0, 0}},
		{MoveAction([]SubMove{{25, 6}, {19, 6}, {13, 6}, {13, 6}}), []byte{4, 25, 6, 19, 6, 13, 6, 13, 6}},
		{MoveAction([]SubMove{{0, 2}}), []byte{4, 0, 2, 0, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		got, err := tt.action.Encode()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s", tt.action)

		back, err := DecodeAction(got)
		require.NoError(t, err)
		assert.Equal(t, tt.action.Op, back.Op)
		assert.Equal(t, len(tt.action.Moves), len(back.Moves))
	}

	_, err := MoveAction(make([]SubMove, 5)).Encode()
	assert.Error(t, err)
}

func TestDecodeActionErrors(t *testing.T) {
	for _, b := range [][]byte{
		nil,
		{9},
		{0, 1, 2},
		{1, 0},
		{3, 2},
		{4, 1, 2},
	} {
		_, err := DecodeAction(b)
		assert.Error(t, err, "%v", b)
	}
}
