package engine

import (
	"encoding/binary"
	"fmt"
)

// Record layout offsets.
const (
	offGameID          = 0
	offStatus          = 8
	offKeys            = 9
	offTurn            = 73
	offWinner          = 74
	offDice            = 75
	offMultiplier      = 77
	offLastMoves       = 78
	offLastDoubled     = 86
	offBoard           = 87
	offOffA            = 139
	offOffB            = 140
	offCounter         = 141
	offMaxMoves        = 145
	offConstraintCount = 146
	offConstraint      = 147

	// boardPoints counts the (tag, count) pairs of the board region: A's bar,
	// points 1..24, B's bar.
	boardPoints = 26

	// MinRecordSize is the size of a record without constraint pairs.
	MinRecordSize = offConstraint
	// MaxConstraintPairs is the capacity reserved for the first-move constraint.
	MaxConstraintPairs = 30
	// RecordSize is the size written by EncodeRecord.
	RecordSize = MinRecordSize + 2*MaxConstraintPairs

	// MaxMultiplier caps the doubling cube.
	MaxMultiplier = 64
)

// Decode parses a ledger record. It returns a fresh Snapshot on every call.
func Decode(buf []byte) (*Snapshot, error) {
	if len(buf) < MinRecordSize {
		return nil, &DecodeError{Field: "record", Offset: len(buf),
			Reason: fmt.Sprintf("short buffer: %d bytes, need %d", len(buf), MinRecordSize)}
	}

	s := &Snapshot{
		GameID:      binary.LittleEndian.Uint64(buf[offGameID:]),
		Status:      Status(buf[offStatus]),
		Multiplier:  int(buf[offMultiplier]),
		Counter:     binary.LittleEndian.Uint32(buf[offCounter:]),
		MaxSubMoves: int(buf[offMaxMoves]),
	}
	if s.Status > StatusFinished {
		return nil, &DecodeError{Field: "status", Offset: offStatus, Reason: fmt.Sprintf("unknown status %d", buf[offStatus])}
	}

	var err error
	if s.Turn, err = decodePlayer(buf, offTurn, "turn"); err != nil {
		return nil, err
	}
	if s.Winner, err = decodePlayer(buf, offWinner, "winner"); err != nil {
		return nil, err
	}
	if s.LastDoubled, err = decodePlayer(buf, offLastDoubled, "last_doubled"); err != nil {
		return nil, err
	}

	for i := 0; i < 2; i++ {
		d := int(buf[offDice+i])
		if d > 6 {
			return nil, &DecodeError{Field: "dice", Offset: offDice + i, Reason: fmt.Sprintf("die value %d", d)}
		}
		s.Dice[i] = d
	}

	if s.Status != StatusInit && (s.Multiplier == 0 || s.Multiplier&(s.Multiplier-1) != 0 || s.Multiplier > MaxMultiplier) {
		return nil, &DecodeError{Field: "multiplier", Offset: offMultiplier, Reason: fmt.Sprintf("not a power of two up to %d: %d", MaxMultiplier, s.Multiplier)}
	}

	for i := range s.LastMoves {
		s.LastMoves[i] = SubMove{Start: int(buf[offLastMoves+2*i]), Step: int(buf[offLastMoves+2*i+1])}
	}

	if err := decodeBoard(buf, &s.Position); err != nil {
		return nil, err
	}

	n := int(buf[offConstraintCount])
	if n > MaxConstraintPairs {
		return nil, &DecodeError{Field: "constraint", Offset: offConstraintCount, Reason: fmt.Sprintf("%d pairs exceeds %d", n, MaxConstraintPairs)}
	}
	if n > 0 {
		if len(buf) < offConstraint+2*n {
			return nil, &DecodeError{Field: "constraint", Offset: len(buf),
				Reason: fmt.Sprintf("short buffer: %d pairs need %d bytes", n, offConstraint+2*n)}
		}
		s.Constraint = make([]SubMove, n)
		for i := range s.Constraint {
			s.Constraint[i] = SubMove{Start: int(buf[offConstraint+2*i]), Step: int(buf[offConstraint+2*i+1])}
		}
	}

	return s, nil
}

func decodePlayer(buf []byte, off int, field string) (Player, error) {
	p := Player(buf[off])
	if p > PlayerB {
		return NoPlayer, &DecodeError{Field: field, Offset: off, Reason: fmt.Sprintf("unknown player %d", buf[off])}
	}
	return p, nil
}

func decodeBoard(buf []byte, pos *Position) error {
	for i := 0; i < boardPoints; i++ {
		off := offBoard + 2*i
		tag, count := int(buf[off]), int(buf[off+1])
		if tag > 2 {
			return &DecodeError{Field: "board", Offset: off, Reason: fmt.Sprintf("unknown owner tag %d", tag)}
		}
		if count > CheckersPerSide {
			return &DecodeError{Field: "board", Offset: off + 1, Reason: fmt.Sprintf("count %d", count)}
		}
		if tag == 0 && count != 0 {
			return &DecodeError{Field: "board", Offset: off, Reason: "checkers without owner"}
		}
		value := (tag*2 - 3) * count
		switch i {
		case 0:
			if tag == int(PlayerB) {
				return &DecodeError{Field: "board", Offset: off, Reason: "B checkers on A's bar"}
			}
			pos.Bar[0] = count
		case boardPoints - 1:
			if tag == int(PlayerA) {
				return &DecodeError{Field: "board", Offset: off, Reason: "A checkers on B's bar"}
			}
			pos.Bar[1] = count
		default:
			pos.Board[i-1] = value
		}
	}
	pos.Off[0] = int(buf[offOffA])
	pos.Off[1] = int(buf[offOffB])
	if pos.Off[0] > CheckersPerSide || pos.Off[1] > CheckersPerSide {
		return &DecodeError{Field: "off", Offset: offOffA, Reason: "more than 15 borne off"}
	}
	return nil
}

// EncodeRecord writes s in the ledger layout. It is the inverse of Decode for
// any snapshot Decode can produce.
func EncodeRecord(s *Snapshot) []byte {
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint64(buf[offGameID:], s.GameID)
	buf[offStatus] = byte(s.Status)
	buf[offTurn] = byte(s.Turn)
	buf[offWinner] = byte(s.Winner)
	buf[offDice] = byte(s.Dice[0])
	buf[offDice+1] = byte(s.Dice[1])
	buf[offMultiplier] = byte(s.Multiplier)
	for i, m := range s.LastMoves {
		buf[offLastMoves+2*i] = byte(m.Start)
		buf[offLastMoves+2*i+1] = byte(m.Step)
	}
	buf[offLastDoubled] = byte(s.LastDoubled)

	pos := &s.Position
	putPoint := func(i int, owner Player, count int) {
		if count == 0 {
			return
		}
		buf[offBoard+2*i] = byte(owner)
		buf[offBoard+2*i+1] = byte(count)
	}
	putPoint(0, PlayerA, pos.Bar[0])
	for point := 1; point <= 24; point++ {
		v := pos.Board[point-1]
		switch {
		case v < 0:
			putPoint(point, PlayerA, -v)
		case v > 0:
			putPoint(point, PlayerB, v)
		}
	}
	putPoint(boardPoints-1, PlayerB, pos.Bar[1])
	buf[offOffA] = byte(pos.Off[0])
	buf[offOffB] = byte(pos.Off[1])

	binary.LittleEndian.PutUint32(buf[offCounter:], s.Counter)
	buf[offMaxMoves] = byte(s.MaxSubMoves)
	n := len(s.Constraint)
	if n > MaxConstraintPairs {
		n = MaxConstraintPairs
	}
	buf[offConstraintCount] = byte(n)
	for i := 0; i < n; i++ {
		buf[offConstraint+2*i] = byte(s.Constraint[i].Start)
		buf[offConstraint+2*i+1] = byte(s.Constraint[i].Step)
	}
	return buf
}

// Opcode is the leading byte of an action.
type Opcode uint8

const (
	OpInit Opcode = iota
	OpRoll
	OpDouble
	OpDoubleResponse
	OpMove
)

func (o Opcode) String() string {
	switch o {
	case OpInit:
		return "init"
	case OpRoll:
		return "roll"
	case OpDouble:
		return "double"
	case OpDoubleResponse:
		return "double-response"
	case OpMove:
		return "move"
	}
	return fmt.Sprintf("opcode(%d)", uint8(o))
}

// NonceSize is the length of the Init session nonce.
const NonceSize = 8

// Action is one submission to the ledger.
type Action struct {
	Op     Opcode
	Nonce  [NonceSize]byte // Init
	Accept bool            // DoubleResponse
	Moves  []SubMove       // Move, at most four
}

// InitAction, RollAction and friends build actions.
func InitAction(nonce [NonceSize]byte) Action { return Action{Op: OpInit, Nonce: nonce} }
func RollAction() Action                      { return Action{Op: OpRoll} }
func DoubleAction() Action                    { return Action{Op: OpDouble} }
func ResponseAction(accept bool) Action       { return Action{Op: OpDoubleResponse, Accept: accept} }
func MoveAction(moves []SubMove) Action       { return Action{Op: OpMove, Moves: moves} }

// Encode packs the action as an opcode-prefixed byte sequence.
func (a Action) Encode() ([]byte, error) {
	switch a.Op {
	case OpInit:
		return append([]byte{byte(OpInit)}, a.Nonce[:]...), nil
	case OpRoll, OpDouble:
		return []byte{byte(a.Op)}, nil
	case OpDoubleResponse:
		b := []byte{byte(OpDoubleResponse), 0}
		if a.Accept {
			b[1] = 1
		}
		return b, nil
	case OpMove:
		if len(a.Moves) > 4 {
			return nil, fmt.Errorf("move action has %d sub-moves, at most 4", len(a.Moves))
		}
		b := make([]byte, 9)
		b[0] = byte(OpMove)
		for i, m := range a.Moves {
			if m.Start < 0 || m.Start > 25 || m.Step < 0 || m.Step > 6 {
				return nil, fmt.Errorf("sub-move %d/%d out of range", m.Start, m.Step)
			}
			b[1+2*i] = byte(m.Start)
			b[2+2*i] = byte(m.Step)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown opcode %d", a.Op)
}

// DecodeAction parses an encoded action. Trailing (0,0) move pairs are dropped.
func DecodeAction(b []byte) (Action, error) {
	if len(b) == 0 {
		return Action{}, fmt.Errorf("empty action")
	}
	a := Action{Op: Opcode(b[0])}
	switch a.Op {
	case OpInit:
		if len(b) != 1+NonceSize {
			return Action{}, fmt.Errorf("init action: %d bytes, want %d", len(b), 1+NonceSize)
		}
		copy(a.Nonce[:], b[1:])
	case OpRoll, OpDouble:
		if len(b) != 1 {
			return Action{}, fmt.Errorf("%s action: unexpected payload", a.Op)
		}
	case OpDoubleResponse:
		if len(b) != 2 || b[1] > 1 {
			return Action{}, fmt.Errorf("double-response action: malformed payload")
		}
		a.Accept = b[1] == 1
	case OpMove:
		if len(b) != 9 {
			return Action{}, fmt.Errorf("move action: %d bytes, want 9", len(b))
		}
		for i := 0; i < 4; i++ {
			m := SubMove{Start: int(b[1+2*i]), Step: int(b[2+2*i])}
			if m.IsZero() {
				break
			}
			a.Moves = append(a.Moves, m)
		}
	default:
		return Action{}, fmt.Errorf("unknown opcode %d", b[0])
	}
	return a, nil
}

func (a Action) String() string {
	switch a.Op {
	case OpInit:
		return fmt.Sprintf("init %x", a.Nonce)
	case OpDoubleResponse:
		if a.Accept {
			return "take"
		}
		return "drop"
	case OpMove:
		return "move " + FormatMoves(a.Moves)
	}
	return a.Op.String()
}
