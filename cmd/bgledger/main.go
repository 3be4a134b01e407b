// Command bgledger serves and plays backgammon games kept on a shared
// binary ledger record.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/yourusername/bgledger/internal/config"
)

// version is set by ldflags during build
var version = "dev"

// Globals are the flags shared by every command.
type Globals struct {
	Config   string `short:"c" help:"Config file (default: search the XDG config directories)" type:"path"`
	LogLevel string `help:"Override the configured log level" enum:",debug,info,warn,error" default:""`
}

// setup loads the configuration and builds the logger.
func (g *Globals) setup() (*config.Config, *log.Logger, error) {
	cfg, path, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if g.LogLevel != "" {
		level = g.LogLevel
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
	})
	if path != "" {
		logger.Debug("loaded config", "path", path)
	}
	return cfg, logger, nil
}

type CLI struct {
	Globals

	Version    kong.VersionFlag `short:"v" help:"Show version"`
	Serve      ServeCmd         `cmd:"" help:"Run the ledger server"`
	Play       PlayCmd          `cmd:"" help:"Play a game against a server from the terminal"`
	Bot        BotCmd           `cmd:"" help:"Play a game against a server with the random bot"`
	Autoplay   AutoplayCmd      `cmd:"" help:"Play bot games against an in-process ledger"`
	Inspect    InspectCmd       `cmd:"" help:"Show a game's record, position ID and FIBS board"`
	Watch      WatchCmd         `cmd:"" help:"Follow a game live"`
	InitConfig InitConfigCmd    `cmd:"init-config" help:"Write the default config file"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("bgledger"),
		kong.Description("Backgammon over a shared binary game record"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
		kong.Bind(&cli.Globals),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// InitConfigCmd writes the default configuration.
type InitConfigCmd struct {
	Path string `arg:"" optional:"" help:"Destination (default: XDG config home)" type:"path"`
}

func (c *InitConfigCmd) Run() error {
	path, err := config.WriteDefault(c.Path)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
