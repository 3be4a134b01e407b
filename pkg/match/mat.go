package match

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yourusername/bgledger/pkg/engine"
)

// columnWidth is where party B's column starts on a MAT move line.
const columnWidth = 32

// ExportMAT writes m in MAT format. Each game lists A's actions in the left
// column and B's in the right, one ply pair per numbered line.
func ExportMAT(w io.Writer, m *Match) error {
	bw := bufio.NewWriter(w)
	if m.Place != "" {
		fmt.Fprintf(bw, " ; [Site \"%s\"]\n", m.Place)
	}
	if m.Event != "" {
		fmt.Fprintf(bw, " ; [Event \"%s\"]\n", m.Event)
	}
	if m.Date != "" {
		fmt.Fprintf(bw, " ; [Date \"%s\"]\n", m.Date)
	}
	fmt.Fprintf(bw, " ; [Player 1 \"%s\"]\n", m.Player1)
	fmt.Fprintf(bw, " ; [Player 2 \"%s\"]\n", m.Player2)
	fmt.Fprintf(bw, " Unlimited match\n\n")

	for _, g := range m.Games {
		exportGame(bw, m, g)
	}
	return bw.Flush()
}

func exportGame(w io.Writer, m *Match, g *Game) {
	fmt.Fprintf(w, " Game %d\n", g.Number)
	fmt.Fprintf(w, " %-*s %s : %d\n", columnWidth-1, fmt.Sprintf("%s : %d", m.Player1, g.Score1), m.Player2, g.Score2)
	if g.Incomplete {
		fmt.Fprintln(w, " ; incomplete: some actions were not observed")
	}

	lines := &lineWriter{w: w}
	var roll [2]int
	for _, a := range g.Actions {
		switch a.Type {
		case ActionRoll:
			roll = a.Dice
		case ActionMove:
			lines.put(a.Player, fmt.Sprintf("%d%d: %s", roll[0], roll[1], formatMoves(a.Player, a.Moves)))
		case ActionDouble:
			lines.put(a.Player, fmt.Sprintf(" Doubles => %d", a.Value))
		case ActionTake:
			lines.put(a.Player, " Takes")
		case ActionPass:
			lines.put(a.Player, " Drops")
		}
	}
	lines.flush()

	if g.Result != ResultInProgress {
		fmt.Fprintf(w, "%*sWins %d point\n", columnWidth+4, "", g.Points)
	}
	fmt.Fprintln(w)
}

// lineWriter pairs A's entry with the following B entry on one line.
type lineWriter struct {
	w    io.Writer
	num  int
	left string
	open bool
}

func (l *lineWriter) put(p engine.Player, text string) {
	if p == engine.PlayerA {
		l.flush()
		l.left, l.open = text, true
		return
	}
	if !l.open {
		l.left, l.open = "", true
	}
	l.num++
	fmt.Fprintf(l.w, "%3d) %-*s%s\n", l.num, columnWidth-5, l.left, text)
	l.open = false
}

func (l *lineWriter) flush() {
	if !l.open {
		return
	}
	l.num++
	fmt.Fprintf(l.w, "%3d) %s\n", l.num, l.left)
	l.open = false
}

func formatMoves(p engine.Player, moves []engine.SubMove) string {
	parts := make([]string, 0, len(moves))
	for _, m := range moves {
		parts = append(parts, relativePoint(p, m.Start)+"/"+relativePoint(p, m.Destination(p)))
	}
	return strings.Join(parts, " ")
}

// relativePoint numbers a point from the mover's side, 24 farthest from home.
func relativePoint(p engine.Player, point int) string {
	if point == p.BarPoint() {
		return "bar"
	}
	if point < 1 || point > 24 {
		return "off"
	}
	if p == engine.PlayerA {
		point = 25 - point
	}
	return strconv.Itoa(point)
}
