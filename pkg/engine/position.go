// Package engine implements the backgammon rules and the turn and doubling-cube
// protocol played against an authoritative ledger record.
package engine

import "fmt"

// Player identifies a party. The numeric values match the turn, winner and
// owner-tag bytes of the ledger record.
type Player uint8

const (
	NoPlayer Player = 0
	PlayerA  Player = 1
	PlayerB  Player = 2
)

// Index returns 0 for A and 1 for B, for use with Bar, Off and Dice.
func (p Player) Index() int {
	return int(p) - 1
}

// Opponent returns the other party.
func (p Player) Opponent() Player {
	switch p {
	case PlayerA:
		return PlayerB
	case PlayerB:
		return PlayerA
	}
	return NoPlayer
}

// Valid reports whether p is A or B.
func (p Player) Valid() bool {
	return p == PlayerA || p == PlayerB
}

func (p Player) String() string {
	switch p {
	case PlayerA:
		return "A"
	case PlayerB:
		return "B"
	}
	return "-"
}

// ParsePlayer accepts "A"/"B" in either case as well as "1"/"2".
func ParsePlayer(s string) (Player, error) {
	switch s {
	case "A", "a", "1":
		return PlayerA, nil
	case "B", "b", "2":
		return PlayerB, nil
	}
	return NoPlayer, fmt.Errorf("unknown player %q", s)
}

// sign is the board sign of p's checkers: A is negative, B is positive.
func (p Player) sign() int {
	if p == PlayerA {
		return -1
	}
	return 1
}

// BarPoint is the start value used for a checker entering from the bar:
// 0 for A, 25 for B.
func (p Player) BarPoint() int {
	if p == PlayerA {
		return 0
	}
	return 25
}

// Status is the protocol status byte of the record.
type Status uint8

const (
	StatusInit Status = iota
	StatusDecideOrder
	StatusTurnDecision
	StatusMoveInProgress
	StatusDoubleOffered
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "init"
	case StatusDecideOrder:
		return "decide-order"
	case StatusTurnDecision:
		return "turn-decision"
	case StatusMoveInProgress:
		return "move"
	case StatusDoubleOffered:
		return "double-offered"
	case StatusFinished:
		return "finished"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Board holds 24 points, index 0 is point 1. A's checkers are negative and
// B's are positive; the magnitude is the checker count.
type Board [24]int

// Position is the full checker layout.
type Position struct {
	Board Board
	Bar   [2]int
	Off   [2]int
}

// CheckersPerSide is the number of checkers each party owns.
const CheckersPerSide = 15

// Count returns how many of p's checkers sit on point (1..24).
func (pos *Position) Count(p Player, point int) int {
	v := pos.Board[point-1] * p.sign()
	if v < 0 {
		return 0
	}
	return v
}

// Owner returns the party owning point (1..24), or NoPlayer when empty.
func (pos *Position) Owner(point int) Player {
	switch v := pos.Board[point-1]; {
	case v < 0:
		return PlayerA
	case v > 0:
		return PlayerB
	}
	return NoPlayer
}

// Checkers returns the total of p's checkers on the board, the bar and off.
func (pos *Position) Checkers(p Player) int {
	n := pos.Bar[p.Index()] + pos.Off[p.Index()]
	for point := 1; point <= 24; point++ {
		n += pos.Count(p, point)
	}
	return n
}

// PipCount returns the total distance p still has to travel.
func (pos *Position) PipCount(p Player) int {
	pips := pos.Bar[p.Index()] * 25
	for point := 1; point <= 24; point++ {
		pips += pos.Count(p, point) * distance(p, point)
	}
	return pips
}

// distance is how far a checker of p on point is from bearing off.
func distance(p Player, point int) int {
	if p == PlayerA {
		return 25 - point
	}
	return point
}

// StartingPosition returns the standard opening layout.
func StartingPosition() Position {
	var pos Position
	for _, pc := range []struct{ point, n int }{{1, 2}, {12, 5}, {17, 3}, {19, 5}} {
		pos.Board[pc.point-1] = -pc.n
		pos.Board[25-pc.point-1] = pc.n
	}
	return pos
}

// SubMove is one checker movement. Start is a point (1..24) or the player's
// bar point; Step is the die value used.
type SubMove struct {
	Start int
	Step  int
}

// IsZero reports an unused (0,0) slot.
func (m SubMove) IsZero() bool {
	return m.Start == 0 && m.Step == 0
}

// Destination returns the landing point for p, or 0/25 style values past the
// edge when the move bears off. Bar starts are resolved through BarPoint.
func (m SubMove) Destination(p Player) int {
	if p == PlayerA {
		return m.Start + m.Step
	}
	return m.Start - m.Step
}

// Snapshot is one decoded ledger record. It is treated as immutable.
type Snapshot struct {
	GameID      uint64
	Status      Status
	Turn        Player
	Winner      Player
	Dice        [2]int
	Multiplier  int
	LastMoves   [4]SubMove
	LastDoubled Player
	Position    Position
	Counter     uint32
	MaxSubMoves int
	Constraint  []SubMove
}

// NewSnapshot returns the snapshot of a record that has not been initialised.
func NewSnapshot() *Snapshot {
	return &Snapshot{Status: StatusInit}
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	if s.Constraint != nil {
		c.Constraint = append([]SubMove(nil), s.Constraint...)
	}
	return &c
}

// IsDoubles reports whether both dice are set and equal.
func (s *Snapshot) IsDoubles() bool {
	return s.Dice[0] != 0 && s.Dice[0] == s.Dice[1]
}

// Steps returns the usable steps of the current roll: four copies for doubles,
// otherwise the non-zero dice.
func (s *Snapshot) Steps() []int {
	return StepsForDice(s.Dice)
}

// StepsForDice expands a roll into its usable steps.
func StepsForDice(dice [2]int) []int {
	if dice[0] != 0 && dice[0] == dice[1] {
		return []int{dice[0], dice[0], dice[0], dice[0]}
	}
	steps := make([]int, 0, 2)
	for _, d := range dice {
		if d != 0 {
			steps = append(steps, d)
		}
	}
	return steps
}

// CheckInvariants verifies checker totals once the game is set up.
func (s *Snapshot) CheckInvariants() error {
	if s.Status == StatusInit {
		return nil
	}
	for _, p := range []Player{PlayerA, PlayerB} {
		if n := s.Position.Checkers(p); n != CheckersPerSide {
			return fmt.Errorf("player %s has %d checkers, want %d", p, n, CheckersPerSide)
		}
	}
	return nil
}

// Diff lists the fields that changed since prev, for logging.
func (s *Snapshot) Diff(prev *Snapshot) []string {
	if prev == nil {
		return []string{"record"}
	}
	var changed []string
	add := func(name string, differs bool) {
		if differs {
			changed = append(changed, name)
		}
	}
	add("status", s.Status != prev.Status)
	add("turn", s.Turn != prev.Turn)
	add("winner", s.Winner != prev.Winner)
	add("dice", s.Dice != prev.Dice)
	add("multiplier", s.Multiplier != prev.Multiplier)
	add("last_moves", s.LastMoves != prev.LastMoves)
	add("last_doubled", s.LastDoubled != prev.LastDoubled)
	add("board", s.Position != prev.Position)
	add("max_moves", s.MaxSubMoves != prev.MaxSubMoves)
	add("constraint", !equalMoves(s.Constraint, prev.Constraint))
	return changed
}

func equalMoves(a, b []SubMove) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
