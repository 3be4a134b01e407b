package match

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/yourusername/bgledger/pkg/engine"
)

// SGF (Smart Game Format) backgammon records, GM[6].
// See: https://www.red-bean.com/sgf/backgammon.html
//
// Party A is written as White and party B as Black:
//
//	(;FF[4]GM[6]AP[bgledger]
//	PW[alice]PB[bob]
//	MI[length:0][game:0][ws:0][bs:0]
//	;W[31hefe]
//	;B[65xrrm]
//	;D[]
//	;P[]
//	RE[W+1R])

var sgfEscaper = strings.NewReplacer(`\`, `\\`, `]`, `\]`)

// ExportSGF writes every game of m as its own SGF game tree.
func ExportSGF(w io.Writer, m *Match) error {
	bw := bufio.NewWriter(w)
	for _, g := range m.Games {
		exportGameSGF(bw, m, g)
	}
	return bw.Flush()
}

func exportGameSGF(w io.Writer, m *Match, g *Game) {
	fmt.Fprintf(w, "(;FF[4]GM[6]AP[bgledger]\n")
	fmt.Fprintf(w, "PW[%s]PB[%s]\n", sgfEscaper.Replace(m.Player1), sgfEscaper.Replace(m.Player2))
	// Ledger games are unlimited, which SGF spells as length 0.
	fmt.Fprintf(w, "MI[length:0][game:%d][ws:%d][bs:%d]\n", g.Number-1, g.Score1, g.Score2)
	if m.Date != "" {
		fmt.Fprintf(w, "DT[%s]\n", sgfEscaper.Replace(m.Date))
	}
	if m.Event != "" {
		fmt.Fprintf(w, "EV[%s]\n", sgfEscaper.Replace(m.Event))
	}
	if m.Place != "" {
		fmt.Fprintf(w, "PC[%s]\n", sgfEscaper.Replace(m.Place))
	}
	if g.Incomplete {
		fmt.Fprintf(w, "GC[some actions were not observed]\n")
	}

	var roll [2]int
	for _, a := range g.Actions {
		switch a.Type {
		case ActionRoll:
			roll = a.Dice
		case ActionMove:
			fmt.Fprintf(w, ";%s[%d%d%s]\n", sgfColor(a.Player), roll[0], roll[1], formatMovesSGF(a.Player, a.Moves))
		case ActionDouble:
			fmt.Fprintf(w, ";D[]\n")
		case ActionTake:
			fmt.Fprintf(w, ";T[]\n")
		case ActionPass:
			fmt.Fprintf(w, ";P[]\n")
		}
	}

	if g.Result != ResultInProgress && g.Winner.Valid() {
		re := fmt.Sprintf("%s+%d", sgfColor(g.Winner), g.Points)
		if g.Result == ResultDrop {
			re += "R"
		}
		fmt.Fprintf(w, "RE[%s]\n", re)
	}
	fmt.Fprintf(w, ")\n")
}

func sgfColor(p engine.Player) string {
	if p == engine.PlayerA {
		return "W"
	}
	return "B"
}

func formatMovesSGF(p engine.Player, moves []engine.SubMove) string {
	var b strings.Builder
	for _, m := range moves {
		b.WriteByte(sgfPoint(p, m.Start, true))
		b.WriteByte(sgfPoint(p, m.Destination(p), false))
	}
	return b.String()
}

// sgfPoint letters a point from the mover's side: a is the 1 point, x the 24,
// y the bar and z off the board.
func sgfPoint(p engine.Player, point int, start bool) byte {
	if start && point == p.BarPoint() {
		return 'y'
	}
	if point < 1 || point > 24 {
		return 'z'
	}
	if p == engine.PlayerA {
		point = 25 - point
	}
	return byte('a' + point - 1)
}
