package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yourusername/bgledger/internal/tui"
	"github.com/yourusername/bgledger/pkg/client"
	"github.com/yourusername/bgledger/pkg/engine"
	"github.com/yourusername/bgledger/pkg/external"
)

// GameFlags name a server game and the side to show it from.
type GameFlags struct {
	Game   string `arg:"" help:"Game id"`
	Server string `help:"Server URL (overrides config)"`
	As     string `help:"Party whose side of the board is shown" enum:"A,B" default:"A"`
}

func (f *GameFlags) connect(g *Globals) (*client.Client, engine.Player, error) {
	cfg, logger, err := g.setup()
	if err != nil {
		return nil, engine.NoPlayer, err
	}
	server := cfg.Player.Server
	if f.Server != "" {
		server = f.Server
	}
	you, err := engine.ParsePlayer(f.As)
	if err != nil {
		return nil, engine.NoPlayer, err
	}
	c, err := client.New(server, client.WithLogger(logger.WithPrefix("client")))
	return c, you, err
}

// InspectCmd prints one game's current record.
type InspectCmd struct {
	GameFlags `embed:""`
	Raw       bool `help:"Also print the record bytes in hex"`
}

func (c *InspectCmd) Run(g *Globals) error {
	cl, you, err := c.connect(g)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	raw, err := cl.Record(ctx, c.Game)
	if err != nil {
		return err
	}
	s, err := engine.Decode(raw)
	if err != nil {
		return err
	}

	fmt.Println(tui.RenderBoard(s, you))
	if s.Turn.Valid() {
		fmt.Printf("position id: %s\n", engine.PositionID(s.Position, s.Turn))
	}
	fmt.Println(external.NewFIBSBoard(s, you, you.String(), you.Opponent().String()))
	if c.Raw {
		fmt.Print(hex.Dump(raw))
	}
	return nil
}

// WatchCmd follows a game live until it finishes.
type WatchCmd struct {
	GameFlags `embed:""`
}

func (c *WatchCmd) Run(g *Globals) error {
	cl, you, err := c.connect(g)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, wait, err := cl.Watch(ctx, c.Game)
	if err != nil {
		return err
	}
	_, runErr := tea.NewProgram(tui.NewWatchModel(c.Game, you, updates), tea.WithContext(ctx)).Run()
	cancel()
	werr := wait()
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return werr
}
