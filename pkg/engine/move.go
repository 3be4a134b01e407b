package engine

import (
	"fmt"
	"slices"
	"strings"
)

// Delta is the result of one accepted sub-move.
type Delta struct {
	Move     SubMove
	Position Position // position after the move
	Hit      bool     // an opponent blot was sent to the bar
	BearOff  bool
}

// ApplySubMove validates m for player p against the remaining steps and, when
// constraint is non-nil, the first-move constraint. It never modifies pos.
func ApplySubMove(pos Position, p Player, steps []int, m SubMove, constraint []SubMove) (Delta, error) {
	if !p.Valid() || m.Step < 1 || m.Step > 6 {
		return Delta{}, moveErr(OutOfRange, m)
	}
	if p == PlayerA && (m.Start < 0 || m.Start > 24) || p == PlayerB && (m.Start < 1 || m.Start > 25) {
		return Delta{}, moveErr(OutOfRange, m)
	}
	if !slices.Contains(steps, m.Step) {
		return Delta{}, moveErr(MoveNotInAvailableDice, m)
	}

	me, opp := p.Index(), p.Opponent()
	fromBar := m.Start == p.BarPoint()
	if fromBar && pos.Bar[me] == 0 {
		return Delta{}, moveErr(NoSuchChecker, m)
	}
	if !fromBar && pos.Count(p, m.Start) == 0 {
		return Delta{}, moveErr(NoSuchChecker, m)
	}

	d := Delta{Move: m, Position: pos}
	dest := m.Destination(p)
	offBoard := dest < 1 || dest > 24
	if offBoard && !canBearOff(&pos, p, m) {
		return Delta{}, moveErr(BearOffNotEligible, m)
	}
	if pos.Bar[me] > 0 && !fromBar {
		return Delta{}, moveErr(BarEntryRequired, m)
	}
	if offBoard {
		d.BearOff = true
	} else {
		switch n := pos.Count(opp, dest); {
		case n >= 2:
			return Delta{}, moveErr(DestinationBlocked, m)
		case n == 1:
			d.Hit = true
		}
	}

	if constraint != nil && !slices.Contains(constraint, m) {
		return Delta{}, moveErr(DisallowedOpeningOrder, m)
	}

	np := &d.Position
	if fromBar {
		np.Bar[me]--
	} else {
		np.Board[m.Start-1] -= p.sign()
	}
	switch {
	case d.BearOff:
		np.Off[me]++
	case d.Hit:
		np.Board[dest-1] = p.sign()
		np.Bar[opp.Index()]++
	default:
		np.Board[dest-1] += p.sign()
	}
	return d, nil
}

// canBearOff applies the bear-off rule to a move whose destination lies past
// the board edge.
func canBearOff(pos *Position, p Player, m SubMove) bool {
	if pos.Bar[p.Index()] > 0 {
		return false
	}
	farthest := 0
	for point := 1; point <= 24; point++ {
		if pos.Count(p, point) > 0 {
			farthest = max(farthest, distance(p, point))
		}
	}
	if farthest > 6 {
		return false
	}
	dist := distance(p, m.Start)
	return dist == m.Step || dist == farthest
}

// HasAnyLegalMove reports whether any step yields a legal sub-move for p.
func HasAnyLegalMove(pos Position, p Player, steps []int) bool {
	for _, step := range uniqueSteps(steps) {
		for _, start := range candidateStarts(&pos, p) {
			if _, err := ApplySubMove(pos, p, steps, SubMove{Start: start, Step: step}, nil); err == nil {
				return true
			}
		}
	}
	return false
}

// LegalSubMoves lists every legal single sub-move for p, honouring constraint
// when it is non-nil.
func LegalSubMoves(pos Position, p Player, steps []int, constraint []SubMove) []SubMove {
	var moves []SubMove
	for _, step := range uniqueSteps(steps) {
		for _, start := range candidateStarts(&pos, p) {
			m := SubMove{Start: start, Step: step}
			if _, err := ApplySubMove(pos, p, steps, m, constraint); err == nil {
				moves = append(moves, m)
			}
		}
	}
	return moves
}

func candidateStarts(pos *Position, p Player) []int {
	if pos.Bar[p.Index()] > 0 {
		return []int{p.BarPoint()}
	}
	starts := make([]int, 0, 15)
	for point := 1; point <= 24; point++ {
		if pos.Count(p, point) > 0 {
			starts = append(starts, point)
		}
	}
	return starts
}

func uniqueSteps(steps []int) []int {
	u := make([]int, 0, 2)
	for _, s := range steps {
		if !slices.Contains(u, s) {
			u = append(u, s)
		}
	}
	return u
}

// removeStep returns steps without one occurrence of step.
func removeStep(steps []int, step int) []int {
	out := make([]int, 0, len(steps))
	removed := false
	for _, s := range steps {
		if s == step && !removed {
			removed = true
			continue
		}
		out = append(out, s)
	}
	return out
}

// Play is a complete sequence of sub-moves for one ply.
type Play struct {
	Moves    []SubMove
	Position Position
}

// GeneratePlays returns every sequence of maximal length for the roll, one per
// distinct pair of first sub-move and resulting position. Non-double rolls are
// tried in both orders.
func GeneratePlays(pos Position, p Player, dice [2]int) []Play {
	g := &playGen{player: p, seen: make(map[playKey]bool)}
	steps := StepsForDice(dice)
	g.walk(pos, steps, nil)
	if len(steps) == 2 && steps[0] != steps[1] {
		g.walk(pos, []int{steps[1], steps[0]}, nil)
	}
	return g.plays
}

type playGen struct {
	player Player
	maxLen int
	plays  []Play
	seen   map[playKey]bool
}

type playKey struct {
	first SubMove
	pos   Position
}

// walk plays steps strictly in order, saving every sequence that cannot be
// extended.
func (g *playGen) walk(pos Position, steps []int, moves []SubMove) {
	if len(steps) > 0 {
		extended := false
		for _, start := range candidateStarts(&pos, g.player) {
			m := SubMove{Start: start, Step: steps[0]}
			d, err := ApplySubMove(pos, g.player, steps[:1], m, nil)
			if err != nil {
				continue
			}
			extended = true
			g.walk(d.Position, steps[1:], append(slices.Clone(moves), m))
		}
		if extended {
			return
		}
	}
	g.save(pos, moves)
}

func (g *playGen) save(pos Position, moves []SubMove) {
	switch {
	case len(moves) < g.maxLen:
		return
	case len(moves) > g.maxLen:
		g.maxLen = len(moves)
		g.plays = g.plays[:0]
		clear(g.seen)
	}
	key := playKey{pos: pos}
	if len(moves) > 0 {
		key.first = moves[0]
	}
	if g.seen[key] {
		return
	}
	g.seen[key] = true
	g.plays = append(g.plays, Play{Moves: moves, Position: pos})
}

// OpeningConstraint computes how many sub-moves the roll allows and, for
// non-double rolls, the set of first sub-moves that keep a maximal play
// available. When only one die can be used and both could be, the larger die
// must be played.
func OpeningConstraint(pos Position, p Player, dice [2]int) (int, []SubMove) {
	plays := GeneratePlays(pos, p, dice)
	if len(plays) == 0 || len(plays[0].Moves) == 0 {
		return 0, nil
	}
	maxLen := len(plays[0].Moves)
	if dice[0] == dice[1] {
		return maxLen, nil
	}

	var firsts []SubMove
	for _, play := range plays {
		if !slices.Contains(firsts, play.Moves[0]) {
			firsts = append(firsts, play.Moves[0])
		}
	}
	if maxLen == 1 {
		high := max(dice[0], dice[1])
		var withHigh []SubMove
		for _, m := range firsts {
			if m.Step == high {
				withHigh = append(withHigh, m)
			}
		}
		if len(withHigh) > 0 {
			firsts = withHigh
		}
	}
	slices.SortFunc(firsts, func(a, b SubMove) int {
		if a.Step != b.Step {
			return a.Step - b.Step
		}
		return a.Start - b.Start
	})
	return maxLen, firsts
}

// FormatMove renders a sub-move as "start/dest" for p, using "bar" and "off".
func FormatMove(p Player, m SubMove) string {
	from := fmt.Sprint(m.Start)
	if m.Start == p.BarPoint() {
		from = "bar"
	}
	to := "off"
	if dest := m.Destination(p); dest >= 1 && dest <= 24 {
		to = fmt.Sprint(dest)
	}
	return from + "/" + to
}

// FormatMoves renders raw (start, step) pairs.
func FormatMoves(moves []SubMove) string {
	parts := make([]string, 0, len(moves))
	for _, m := range moves {
		parts = append(parts, fmt.Sprintf("%d:%d", m.Start, m.Step))
	}
	return strings.Join(parts, " ")
}
