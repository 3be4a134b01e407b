package main

import (
	"github.com/yourusername/bgledger/internal/ledger"
	"github.com/yourusername/bgledger/internal/randutil"
	"github.com/yourusername/bgledger/pkg/api"
	"github.com/yourusername/bgledger/pkg/external"
)

// ServeCmd runs the HTTP server and, optionally, the line protocol.
type ServeCmd struct {
	Host string `help:"Host to bind to (overrides config)"`
	Port int    `help:"Port to listen on (overrides config)"`
	Seed int64  `help:"Dice seed (overrides config; 0 seeds from the clock)"`
	Line string `help:"Also serve the line protocol on this address, e.g. ':4321'"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}

	sc := api.DefaultConfig()
	sc.Host, sc.Port = cfg.Server.Host, cfg.Server.Port
	if c.Host != "" {
		sc.Host = c.Host
	}
	if c.Port != 0 {
		sc.Port = c.Port
	}
	seed := cfg.Server.Seed
	if c.Seed != 0 {
		seed = c.Seed
	}
	seed = randutil.Seed(seed)

	store := ledger.NewStore(seed, logger.WithPrefix("ledger"))
	srv := api.NewServer(store, sc, version, logger.WithPrefix("api"))

	ctx, stop := signalContext()
	defer stop()

	if c.Line != "" {
		line := external.NewServer(store, external.ServerOptions{Addr: c.Line, PromptEnabled: true}, logger.WithPrefix("line"))
		if err := line.Start(); err != nil {
			return err
		}
		defer line.Stop()
	}

	logger.Info("starting bgledger server", "addr", srv.Addr(), "seed", seed, "version", version)
	return srv.Run(ctx)
}
