package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/yourusername/bgledger/internal/config"
	"github.com/yourusername/bgledger/internal/randutil"
	"github.com/yourusername/bgledger/internal/tui"
	"github.com/yourusername/bgledger/pkg/client"
	"github.com/yourusername/bgledger/pkg/engine"
	"github.com/yourusername/bgledger/pkg/session"
)

// RemoteFlags select the server, game and party for a remote player.
type RemoteFlags struct {
	Server string `help:"Server URL (overrides config)"`
	Game   string `help:"Game to join; empty creates a new game and plays A"`
	As     string `help:"Party to play when joining a game" enum:"A,B" default:"B"`
	Seed   int64  `help:"Seed for the game nonce and bot choices; 0 seeds from the clock"`
}

// play runs one party of a server game to the end.
func (r *RemoteFlags) play(ctx context.Context, cfg *config.Config, logger *log.Logger, decider engine.Decider, observe func(engine.Player, *engine.Snapshot)) (*session.Result, error) {
	server := cfg.Player.Server
	if r.Server != "" {
		server = r.Server
	}
	c, err := client.New(server, client.WithLogger(logger.WithPrefix("client")))
	if err != nil {
		return nil, err
	}

	game, party := r.Game, engine.PlayerB
	var opts []engine.MachineOption
	if game == "" {
		if game, err = c.CreateGame(ctx); err != nil {
			return nil, err
		}
		party = engine.PlayerA
		logger.Info("created game", "game", game)
	} else if party, err = engine.ParsePlayer(r.As); err != nil {
		return nil, err
	}
	if party == engine.PlayerA {
		opts = append(opts, engine.AsInitiator(randutil.Nonce(randutil.New(randutil.Seed(r.Seed)))))
	}

	retry := client.Retry{
		Attempts: cfg.Player.Retries,
		Backoff:  cfg.Player.BackoffDuration(),
		Logger:   logger,
	}
	remote := c.Party(game, party)
	drv := session.NewDriver(retry.Source(remote), retry.Sink(remote),
		engine.NewMachine(party, opts...), decider,
		session.WithPollInterval(cfg.Player.PollDuration()),
		session.WithLogger(logger),
		session.WithObserver(func(s *engine.Snapshot) { observe(party, s) }),
	)

	res, err := drv.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", game, err)
	}
	logger.Info("game over", "game", game, "party", party,
		"winner", res.Outcome.Winner, "points", res.Outcome.Multiplier, "dropped", res.Outcome.Dropped,
		"plies", res.Plies, "submitted", res.Submitted)
	return res, nil
}

// PlayCmd plays one party from the terminal.
type PlayCmd struct {
	RemoteFlags
}

func (c *PlayCmd) Run(g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	prompter := tui.NewPrompter(os.Stdin, os.Stdout)
	_, err = c.play(ctx, cfg, logger, prompter, func(you engine.Player, s *engine.Snapshot) {
		fmt.Println(tui.StatusLine(s, you))
		if s.Status == engine.StatusFinished {
			fmt.Println(tui.RenderBoard(s, you))
		}
	})
	return err
}

// BotCmd plays one party with the random bot.
type BotCmd struct {
	RemoteFlags
	Double float64 `help:"Probability of offering a double when allowed" default:"0"`
	Take   float64 `help:"Probability of taking a double" default:"1"`
}

func (c *BotCmd) Run(g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	bot := session.NewRandom(randutil.New(randutil.Seed(c.Seed) + 1))
	bot.Double, bot.Take = c.Double, c.Take
	_, err = c.play(ctx, cfg, logger, bot, func(engine.Player, *engine.Snapshot) {})
	return err
}
