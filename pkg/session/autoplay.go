package session

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/bgledger/internal/ledger"
	"github.com/yourusername/bgledger/pkg/engine"
	"github.com/yourusername/bgledger/pkg/match"
)

// Autoplay runs both parties of one game against l concurrently. Party A
// initiates the game with nonce. When rec is not nil it records every action
// the ledger accepts.
// The returned results are indexed by Player.Index.
func Autoplay(ctx context.Context, l *ledger.Ledger, nonce [engine.NonceSize]byte, a, b engine.Decider, rec *match.Recorder, opts ...Option) ([2]*Result, error) {
	var results [2]*Result
	g, ctx := errgroup.WithContext(ctx)

	parties := []struct {
		player  engine.Player
		decider engine.Decider
		machine *engine.Machine
	}{
		{engine.PlayerA, a, engine.NewMachine(engine.PlayerA, engine.AsInitiator(nonce))},
		{engine.PlayerB, b, engine.NewMachine(engine.PlayerB)},
	}
	if rec != nil {
		l.OnApply(rec.Record)
	}
	for _, p := range parties {
		local := Local{Ledger: l, Party: p.player}
		drv := NewDriver(local, local, p.machine, p.decider, opts...)
		g.Go(func() error {
			res, err := drv.Run(ctx)
			if err != nil {
				return fmt.Errorf("party %s: %w", p.player, err)
			}
			results[p.player.Index()] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
