package main

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/bgledger/internal/fileutil"
	"github.com/yourusername/bgledger/internal/ledger"
	"github.com/yourusername/bgledger/internal/randutil"
	"github.com/yourusername/bgledger/pkg/engine"
	"github.com/yourusername/bgledger/pkg/match"
	"github.com/yourusername/bgledger/pkg/session"
)

// AutoplayCmd plays bot games against in-process ledgers.
type AutoplayCmd struct {
	Games  int     `help:"Number of games" default:"10"`
	Seed   int64   `help:"Seed for dice, nonces and bots; 0 seeds from the clock"`
	Double float64 `help:"Probability of offering a double when allowed" default:"0.1"`
	Take   float64 `help:"Probability of taking a double" default:"0.8"`
	Mat    string  `help:"Write the games to a Jellyfish MAT file" type:"path"`
	SGF    string  `name:"sgf" help:"Write the games to an SGF file" type:"path"`
}

func (c *AutoplayCmd) Run(g *Globals) error {
	_, logger, err := g.setup()
	if err != nil {
		return err
	}
	if c.Games < 1 {
		return fmt.Errorf("games must be positive: %d", c.Games)
	}
	ctx, stop := signalContext()
	defer stop()

	seed := randutil.Seed(c.Seed)
	rng := randutil.New(seed)
	rec := match.NewRecorder(match.NewMatch("A", "B"))
	rec.Match().Date = time.Now().Format("2006-01-02")
	rec.Match().Event = fmt.Sprintf("bgledger autoplay, seed %d", seed)

	var (
		plies   = make([]float64, 0, c.Games)
		cubes   = make([]float64, 0, c.Games)
		points  [2]int
		wins    [2]int
		dropped int
	)
	start := time.Now()
	for i := 0; i < c.Games; i++ {
		l := ledger.New(ledger.RandomDice(randutil.New(rng.Int64())), logger.WithPrefix("ledger"))
		bots := [2]*session.Random{
			session.NewRandom(randutil.New(rng.Int64())),
			session.NewRandom(randutil.New(rng.Int64())),
		}
		for _, b := range bots {
			b.Double, b.Take = c.Double, c.Take
		}

		res, err := session.Autoplay(ctx, l, randutil.Nonce(rng), bots[0], bots[1], rec,
			session.WithPollInterval(time.Millisecond),
			session.WithLogger(logger.WithPrefix("driver")))
		if err != nil {
			return fmt.Errorf("game %d: %w", i+1, err)
		}

		o := res[0].Outcome
		plies = append(plies, float64(res[0].Plies+res[1].Plies))
		cubes = append(cubes, float64(o.Multiplier))
		if o.Winner.Valid() {
			wins[o.Winner.Index()]++
			points[o.Winner.Index()] += o.Multiplier
		}
		if o.Dropped {
			dropped++
		}
		logger.Debug("game finished", "game", i+1, "winner", o.Winner, "points", o.Multiplier, "plies", plies[i])
	}

	meanPlies, sdPlies := stat.MeanStdDev(plies, nil)
	meanCube, sdCube := stat.MeanStdDev(cubes, nil)
	fmt.Printf("games:    %d in %s (seed %d)\n", c.Games, time.Since(start).Round(time.Millisecond), seed)
	fmt.Printf("wins:     A %d (%d points)  B %d (%d points)\n",
		wins[engine.PlayerA.Index()], points[engine.PlayerA.Index()],
		wins[engine.PlayerB.Index()], points[engine.PlayerB.Index()])
	fmt.Printf("dropped:  %d\n", dropped)
	fmt.Printf("plies:    mean %.1f  sd %.1f\n", meanPlies, sdPlies)
	fmt.Printf("cube:     mean %.2f  sd %.2f\n", meanCube, sdCube)

	for _, out := range []struct {
		path, format string
		export       func(io.Writer, *match.Match) error
	}{
		{c.Mat, "MAT", match.ExportMAT},
		{c.SGF, "SGF", match.ExportSGF},
	} {
		if out.path == "" {
			continue
		}
		var buf bytes.Buffer
		if err := out.export(&buf, rec.Match()); err != nil {
			return fmt.Errorf("export %s: %w", out.format, err)
		}
		if err := fileutil.WriteFileAtomic(out.path, buf.Bytes(), 0o644); err != nil {
			return err
		}
		logger.Info("wrote match", "path", out.path, "format", out.format, "games", len(rec.Match().Games))
	}
	return nil
}
