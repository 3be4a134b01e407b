// Package tui renders ledger games in the terminal and reads a human
// player's decisions.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yourusername/bgledger/pkg/engine"
)

// RenderBoard draws s as seen by you: your home board sits bottom right.
func RenderBoard(s *engine.Snapshot, you engine.Player) string {
	top, bottom := rows(you)

	var b strings.Builder
	b.WriteString(pointLabels(top) + "\n")
	b.WriteString(pointCells(&s.Position, top) + "\n")
	b.WriteString(strings.Repeat(" ", 19) + "|\n")
	b.WriteString(pointCells(&s.Position, bottom) + "\n")
	b.WriteString(pointLabels(bottom) + "\n")

	pos := &s.Position
	b.WriteString(fmt.Sprintf("bar %s %s  off %s %s  pips %s %d %s %d",
		partyCount(engine.PlayerA, pos.Bar[0]), partyCount(engine.PlayerB, pos.Bar[1]),
		partyCount(engine.PlayerA, pos.Off[0]), partyCount(engine.PlayerB, pos.Off[1]),
		partyStyle(engine.PlayerA).Render("A"), pos.PipCount(engine.PlayerA),
		partyStyle(engine.PlayerB).Render("B"), pos.PipCount(engine.PlayerB)))

	header := HeaderStyle.Render(fmt.Sprintf(" game %d  record #%d ", s.GameID, s.Counter))
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		BoardFrameStyle.Render(b.String()),
		StatusLine(s, you))
}

// rows returns the point order of the top and bottom rows. The bottom row
// ends on your home board's deepest point.
func rows(you engine.Player) (top, bottom []int) {
	top = make([]int, 0, 12)
	bottom = make([]int, 0, 12)
	for i := 0; i < 12; i++ {
		if you == engine.PlayerA {
			top = append(top, 12-i)
			bottom = append(bottom, 13+i)
		} else {
			top = append(top, 13+i)
			bottom = append(bottom, 12-i)
		}
	}
	return top, bottom
}

func pointLabels(points []int) string {
	var b strings.Builder
	for i, p := range points {
		if i == 6 {
			b.WriteString(" |")
		}
		b.WriteString(PointStyle.Render(fmt.Sprintf("%3d", p)))
	}
	return b.String()
}

func pointCells(pos *engine.Position, points []int) string {
	var b strings.Builder
	for i, p := range points {
		if i == 6 {
			b.WriteString(" |")
		}
		owner := pos.Owner(p)
		if !owner.Valid() {
			b.WriteString(PointStyle.Render("  ."))
			continue
		}
		b.WriteString(" " + partyCount(owner, pos.Count(owner, p)))
	}
	return b.String()
}

func partyCount(p engine.Player, n int) string {
	cell := fmt.Sprintf("%s%d", p, n)
	if n > 9 {
		cell = fmt.Sprintf("%s+", p)
	}
	return partyStyle(p).Render(cell)
}

func partyStyle(p engine.Player) lipgloss.Style {
	if p == engine.PlayerA {
		return PartyAStyle
	}
	return PartyBStyle
}

// StatusLine describes whose action the record is waiting for.
func StatusLine(s *engine.Snapshot, you engine.Player) string {
	who := func(p engine.Player) string {
		if p == you {
			return "you (" + p.String() + ")"
		}
		return p.String()
	}
	cube := fmt.Sprintf("cube %d", max(s.Multiplier, 1))
	if s.LastDoubled.Valid() {
		cube += ", last doubled by " + s.LastDoubled.String()
	}

	switch s.Status {
	case engine.StatusInit:
		return InfoStyle.Render("waiting for the game to start")
	case engine.StatusDecideOrder:
		return fmt.Sprintf("deciding order: A rolled %s, B rolled %s",
			die(s.Dice[0]), die(s.Dice[1]))
	case engine.StatusTurnDecision:
		return fmt.Sprintf("%s to roll or double  %s", who(s.Turn), cube)
	case engine.StatusMoveInProgress:
		line := fmt.Sprintf("%s to move %s  %s", who(s.Turn),
			DiceStyle.Render(fmt.Sprintf("%d-%d", s.Dice[0], s.Dice[1])), cube)
		if s.MaxSubMoves > 0 {
			line += fmt.Sprintf("  up to %d sub-moves", s.MaxSubMoves)
		}
		return line
	case engine.StatusDoubleOffered:
		return WarningStyle.Render(fmt.Sprintf("%s doubles to %d, %s to take or drop",
			s.Turn, s.Multiplier*2, who(s.Turn.Opponent())))
	case engine.StatusFinished:
		o := engine.OutcomeOf(s)
		how := "all checkers borne off"
		if o.Dropped {
			how = "double dropped"
		}
		return SuccessStyle.Render(fmt.Sprintf("%s won %d point(s), %s", who(o.Winner), o.Multiplier, how))
	}
	return ErrorStyle.Render(s.Status.String())
}

func die(v int) string {
	if v == 0 {
		return "-"
	}
	return DiceStyle.Render(fmt.Sprint(v))
}
