package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/yourusername/bgledger/pkg/engine"
)

// ErrInputClosed is returned once the prompt's input reaches EOF.
var ErrInputClosed = errors.New("input closed")

// Prompter is an engine.Decider that asks a human on a line-based terminal.
// Sub-moves are entered as "24/21", "bar/20", "6/off" or "start step".
type Prompter struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan string
	err   error
}

// NewPrompter reads answers from in and writes boards and prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out}
}

// start feeds input lines to a channel so reads can be abandoned when the
// context ends.
func (p *Prompter) start() {
	p.lines = make(chan string)
	go func() {
		defer close(p.lines)
		sc := bufio.NewScanner(p.in)
		for sc.Scan() {
			p.lines <- strings.TrimSpace(sc.Text())
		}
		p.err = sc.Err()
	}()
}

func (p *Prompter) readLine(ctx context.Context, prompt string) (string, error) {
	p.once.Do(p.start)
	fmt.Fprint(p.out, prompt)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			if p.err != nil {
				return "", p.err
			}
			return "", ErrInputClosed
		}
		return line, nil
	}
}

func (p *Prompter) NextSubMove(ctx context.Context, view engine.PlyView) (engine.SubMove, error) {
	working := view.Snapshot.Clone()
	working.Position = view.Position
	fmt.Fprintln(p.out, RenderBoard(working, view.Player))

	if len(view.Played) > 0 {
		played := make([]string, len(view.Played))
		for i, m := range view.Played {
			played[i] = engine.FormatMove(view.Player, m)
		}
		fmt.Fprintln(p.out, InfoStyle.Render("played: "+strings.Join(played, " ")))
	}
	if view.LastError != nil {
		fmt.Fprintln(p.out, ErrorStyle.Render("rejected: "+view.LastError.Error()))
	}

	for {
		line, err := p.readLine(ctx, fmt.Sprintf("steps %v, move (or hint): ", view.Steps))
		if err != nil {
			return engine.SubMove{}, err
		}
		switch strings.ToLower(line) {
		case "":
			continue
		case "hint", "?":
			fmt.Fprintln(p.out, formatLegal(view))
			continue
		}
		m, err := ParseSubMove(view.Player, line, view.Steps)
		if err != nil {
			fmt.Fprintln(p.out, ErrorStyle.Render(err.Error()))
			continue
		}
		return m, nil
	}
}

func formatLegal(view engine.PlyView) string {
	legal := view.Legal()
	if len(legal) == 0 {
		return "no legal sub-move"
	}
	parts := make([]string, len(legal))
	for i, m := range legal {
		parts[i] = engine.FormatMove(view.Player, m)
	}
	return "legal: " + strings.Join(parts, " ")
}

func (p *Prompter) OfferDouble(ctx context.Context, s *engine.Snapshot) (bool, error) {
	fmt.Fprintln(p.out, RenderBoard(s, s.Turn))
	return p.choose(ctx, fmt.Sprintf("cube at %d: roll or double? [r/d] ", s.Multiplier),
		[]string{"d", "double"}, []string{"r", "roll"})
}

func (p *Prompter) AcceptDouble(ctx context.Context, s *engine.Snapshot) (bool, error) {
	you := s.Turn.Opponent()
	fmt.Fprintln(p.out, RenderBoard(s, you))
	return p.choose(ctx, fmt.Sprintf("%s doubles to %d: take or drop? [t/d] ", s.Turn, s.Multiplier*2),
		[]string{"t", "take"}, []string{"d", "drop"})
}

func (p *Prompter) choose(ctx context.Context, prompt string, yes, no []string) (bool, error) {
	for {
		line, err := p.readLine(ctx, prompt)
		if err != nil {
			return false, err
		}
		answer := strings.ToLower(line)
		switch {
		case slices.Contains(yes, answer):
			return true, nil
		case slices.Contains(no, answer):
			return false, nil
		}
		fmt.Fprintln(p.out, ErrorStyle.Render(fmt.Sprintf("answer %s or %s", yes[1], no[1])))
	}
}

// ParseSubMove reads a sub-move for p. "from/to" forms take "bar" and "off";
// bearing off uses the smallest available step that reaches off.
func ParseSubMove(p engine.Player, text string, steps []int) (engine.SubMove, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if fields := strings.Fields(text); len(fields) == 2 {
		start, err1 := strconv.Atoi(fields[0])
		step, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			return engine.SubMove{}, fmt.Errorf("cannot parse %q: want \"start step\"", text)
		}
		return engine.SubMove{Start: start, Step: step}, nil
	}

	from, to, ok := strings.Cut(text, "/")
	if !ok {
		return engine.SubMove{}, fmt.Errorf("cannot parse %q: want from/to", text)
	}

	start := p.BarPoint()
	if from != "bar" {
		n, err := strconv.Atoi(from)
		if err != nil || n < 1 || n > 24 {
			return engine.SubMove{}, fmt.Errorf("bad start point %q", from)
		}
		start = n
	}

	if to == "off" {
		dist := start
		if p == engine.PlayerA {
			dist = 25 - start
		}
		step := 0
		for _, s := range steps {
			if s >= dist && (step == 0 || s < step) {
				step = s
			}
		}
		if step == 0 {
			step = dist
		}
		return engine.SubMove{Start: start, Step: step}, nil
	}

	dest, err := strconv.Atoi(to)
	if err != nil || dest < 1 || dest > 24 {
		return engine.SubMove{}, fmt.Errorf("bad destination %q", to)
	}
	step := start - dest
	if p == engine.PlayerA {
		step = dest - start
	}
	if step < 1 || step > 6 {
		return engine.SubMove{}, fmt.Errorf("%s to %s is not a die step", from, to)
	}
	return engine.SubMove{Start: start, Step: step}, nil
}
