// Package external renders ledger games for external backgammon tools: the
// FIBS board line and a plain-text line protocol.
package external

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/bgledger/pkg/engine"
)

// FIBSBoard is a FIBS-style board line seen from one party ("you").
// See: http://www.fibs.com/fibs_interface.html#board_state
//
// Board index 0 is A's bar and 25 B's bar; 1..24 are the points. Your
// checkers are positive and the opponent's negative.
type FIBSBoard struct {
	Player1      string  // Your name
	Player2      string  // Opponent's name
	MatchLength  int     // Always 0: ledger games are single games
	Score1       int     // Your score
	Score2       int     // Opponent's score
	Board        [26]int // Bars and points (-n = opponent, +n = you)
	Turn         int     // Whose turn (1 = you, -1 = opponent, 0 = nobody)
	Dice         [2]int  // Your dice (0,0 if not rolled)
	OppDice      [2]int  // Opponent's dice
	Cube         int     // Cube value
	CanDouble    bool    // Can you double?
	OppCanDouble bool    // Can opponent double?
	Doubled      bool    // Has opponent doubled?
	Color        int     // Your color (1 = A, -1 = B)
	Direction    int     // 1 when you move from point 1 toward 24
	Off          int     // Your checkers borne off
	OppOff       int     // Opponent's checkers borne off
}

const fibsFields = 44

// NewFIBSBoard renders s as seen by you.
func NewFIBSBoard(s *engine.Snapshot, you engine.Player, yourName, oppName string) *FIBSBoard {
	opp := you.Opponent()
	fb := &FIBSBoard{
		Player1:   yourName,
		Player2:   oppName,
		Cube:      max(s.Multiplier, 1),
		Color:     1,
		Direction: 1,
		Off:       s.Position.Off[you.Index()],
		OppOff:    s.Position.Off[opp.Index()],
	}
	if you == engine.PlayerB {
		fb.Color, fb.Direction = -1, -1
	}

	for point := 1; point <= 24; point++ {
		switch s.Position.Owner(point) {
		case you:
			fb.Board[point] = s.Position.Count(you, point)
		case opp:
			fb.Board[point] = -s.Position.Count(opp, point)
		}
	}
	bars := map[engine.Player]int{engine.PlayerA: 0, engine.PlayerB: 25}
	fb.Board[bars[you]] = s.Position.Bar[you.Index()]
	fb.Board[bars[opp]] = -s.Position.Bar[opp.Index()]

	switch s.Turn {
	case you:
		fb.Turn = 1
	case opp:
		fb.Turn = -1
	}
	switch s.Status {
	case engine.StatusMoveInProgress:
		if s.Turn == you {
			fb.Dice = s.Dice
		} else {
			fb.OppDice = s.Dice
		}
	case engine.StatusDecideOrder:
		fb.Dice[0] = s.Dice[you.Index()]
		fb.OppDice[0] = s.Dice[opp.Index()]
	}

	fb.CanDouble = s.Status != engine.StatusFinished && s.LastDoubled != you && s.Multiplier < engine.MaxMultiplier
	fb.OppCanDouble = s.Status != engine.StatusFinished && s.LastDoubled != opp && s.Multiplier < engine.MaxMultiplier
	fb.Doubled = engine.MayRespond(s, you)
	if s.Winner == you {
		fb.Score1 = s.Multiplier
	} else if s.Winner == opp {
		fb.Score2 = s.Multiplier
	}
	return fb
}

// String formats the board line with its "board:" prefix.
func (fb *FIBSBoard) String() string {
	parts := make([]string, 0, fibsFields)
	parts = append(parts, fb.Player1, fb.Player2,
		strconv.Itoa(fb.MatchLength), strconv.Itoa(fb.Score1), strconv.Itoa(fb.Score2))
	for _, n := range fb.Board {
		parts = append(parts, strconv.Itoa(n))
	}
	parts = append(parts,
		strconv.Itoa(fb.Turn),
		strconv.Itoa(fb.Dice[0]), strconv.Itoa(fb.Dice[1]),
		strconv.Itoa(fb.OppDice[0]), strconv.Itoa(fb.OppDice[1]),
		strconv.Itoa(fb.Cube),
		flag(fb.CanDouble), flag(fb.OppCanDouble), flag(fb.Doubled),
		strconv.Itoa(fb.Color), strconv.Itoa(fb.Direction),
		strconv.Itoa(fb.Off), strconv.Itoa(fb.OppOff))
	return "board:" + strings.Join(parts, ":")
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseFIBSBoard parses a board line. Fields after the turn are optional.
// Format: board:player1:player2:matchlen:score1:score2:board[26]:turn:dice[4]:cube:...
func ParseFIBSBoard(s string) (*FIBSBoard, error) {
	s = strings.TrimPrefix(s, "board:")

	parts := strings.Split(s, ":")
	if len(parts) < 32 {
		return nil, fmt.Errorf("invalid FIBS board: expected at least 32 fields, got %d", len(parts))
	}

	fb := &FIBSBoard{Player1: parts[0], Player2: parts[1]}
	ints := []struct {
		idx int
		dst *int
	}{
		{2, &fb.MatchLength}, {3, &fb.Score1}, {4, &fb.Score2}, {31, &fb.Turn},
		{32, &fb.Dice[0]}, {33, &fb.Dice[1]}, {34, &fb.OppDice[0]}, {35, &fb.OppDice[1]},
		{36, &fb.Cube}, {40, &fb.Color}, {41, &fb.Direction}, {42, &fb.Off}, {43, &fb.OppOff},
	}
	for i := 0; i < 26; i++ {
		ints = append(ints, struct {
			idx int
			dst *int
		}{5 + i, &fb.Board[i]})
	}
	for _, f := range ints {
		if f.idx >= len(parts) {
			continue
		}
		v, err := strconv.Atoi(parts[f.idx])
		if err != nil {
			return nil, fmt.Errorf("invalid FIBS board: field %d: %w", f.idx, err)
		}
		*f.dst = v
	}
	if len(parts) > 39 {
		fb.CanDouble = parts[37] == "1"
		fb.OppCanDouble = parts[38] == "1"
		fb.Doubled = parts[39] == "1"
	}
	return fb, nil
}

// You returns the party the board is seen from.
func (fb *FIBSBoard) You() engine.Player {
	if fb.Color == -1 {
		return engine.PlayerB
	}
	return engine.PlayerA
}

// Position converts the board back into a ledger position. Checkers that
// are neither on the board nor on a bar count as borne off.
func (fb *FIBSBoard) Position() (engine.Position, error) {
	var pos engine.Position
	you, opp := fb.You(), fb.You().Opponent()
	sign := map[engine.Player]int{engine.PlayerA: -1, engine.PlayerB: 1}
	bars := map[engine.Player]int{engine.PlayerA: 0, engine.PlayerB: 25}

	for point := 1; point <= 24; point++ {
		n := fb.Board[point]
		switch {
		case n > 0:
			pos.Board[point-1] = n * sign[you]
		case n < 0:
			pos.Board[point-1] = -n * sign[opp]
		}
	}
	pos.Bar[you.Index()] = max(fb.Board[bars[you]], 0)
	pos.Bar[opp.Index()] = max(-fb.Board[bars[opp]], 0)

	for _, p := range []engine.Player{you, opp} {
		on := pos.Checkers(p)
		if on > engine.CheckersPerSide {
			return pos, fmt.Errorf("invalid FIBS board: %s has %d checkers", p, on)
		}
		pos.Off[p.Index()] = engine.CheckersPerSide - on
	}
	return pos, nil
}

// FormatMove formats a ply in FIBS notation, e.g. "bar-20 13-10" or "3-off".
func FormatMove(p engine.Player, moves []engine.SubMove) string {
	parts := make([]string, 0, len(moves))
	for _, m := range moves {
		if m.IsZero() {
			break
		}
		parts = append(parts, formatFIBSPoint(m.Start, p)+"-"+formatFIBSPoint(m.Destination(p), p))
	}
	return strings.Join(parts, " ")
}

// formatFIBSPoint formats a point for FIBS output.
func formatFIBSPoint(point int, p engine.Player) string {
	switch {
	case point == p.BarPoint():
		return "bar"
	case point < 1 || point > 24:
		return "off"
	}
	return strconv.Itoa(point)
}
