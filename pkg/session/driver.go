package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/yourusername/bgledger/pkg/engine"
	"github.com/yourusername/bgledger/pkg/match"
)

// DefaultPollInterval is the wait between reads while nothing is to be done.
const DefaultPollInterval = 500 * time.Millisecond

// Result summarises a finished game from one party's side.
type Result struct {
	Outcome   engine.Outcome
	Plies     int // plies this party played
	Submitted int // actions this party had confirmed
	Rejected  int // sub-move candidates rejected by the turn engine
	Counter   uint32
}

// Driver runs one party's read, decide, submit cycle until the game ends.
type Driver struct {
	source   SnapshotSource
	sink     ActionSink
	machine  *engine.Machine
	decider  engine.Decider
	clock    quartz.Clock
	poll     time.Duration
	logger   *log.Logger
	recorder *match.Recorder
	observe  func(*engine.Snapshot)
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock sets the clock used for polling.
func WithClock(c quartz.Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithPollInterval sets the wait between reads.
func WithPollInterval(p time.Duration) Option {
	return func(d *Driver) { d.poll = p }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithRecorder records every observed record into r.
func WithRecorder(r *match.Recorder) Option {
	return func(d *Driver) { d.recorder = r }
}

// WithObserver calls fn with every new record, for display.
func WithObserver(fn func(*engine.Snapshot)) Option {
	return func(d *Driver) { d.observe = fn }
}

// NewDriver creates a driver for the party of machine.
func NewDriver(source SnapshotSource, sink ActionSink, machine *engine.Machine, decider engine.Decider, opts ...Option) *Driver {
	d := &Driver{
		source:  source,
		sink:    sink,
		machine: machine,
		decider: decider,
		clock:   quartz.NewReal(),
		poll:    DefaultPollInterval,
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("party", machine.Self())
	return d
}

// Run plays until the record reports a finished game. Decode errors,
// protocol desyncs and non-transient read failures end the run.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	var (
		last     *engine.Snapshot
		pending  bool
		awaiting uint32
	)

	for {
		snap, err := d.read(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrTransient):
			d.logger.Warn("read failed, keeping last record", "err", err)
			snap = last
		default:
			return res, err
		}

		if snap != nil && (last == nil || snap.Counter != last.Counter) {
			if err := d.machine.Observe(snap); err != nil {
				return res, err
			}
			d.logger.Debug("record changed", "status", snap.Status, "turn", snap.Turn, "counter", snap.Counter, "fields", snap.Diff(last))
			if d.recorder != nil {
				d.recorder.Observe(snap)
			}
			if d.observe != nil {
				d.observe(snap)
			}
			last = snap
		}

		if snap == nil || pending && snap.Counter == awaiting {
			if err := d.wait(ctx); err != nil {
				return res, err
			}
			continue
		}
		pending = false

		dec, err := d.machine.Decide(ctx, snap, d.decider)
		if err != nil {
			return res, fmt.Errorf("decide: %w", err)
		}
		if dec.Finished {
			res.Outcome = dec.Outcome
			res.Counter = snap.Counter
			d.logger.Info("game finished", "winner", dec.Outcome.Winner, "multiplier", dec.Outcome.Multiplier)
			return res, nil
		}
		if dec.Action == nil {
			if err := d.wait(ctx); err != nil {
				return res, err
			}
			continue
		}

		if err := d.submit(ctx, *dec.Action); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			d.logger.Warn("submission failed", "action", dec.Action, "err", err)
			if err := d.wait(ctx); err != nil {
				return res, err
			}
			continue
		}

		res.Submitted++
		if dec.Turn != nil {
			res.Plies++
			res.Rejected += dec.Turn.Rejections
		}
		pending, awaiting = true, snap.Counter
	}
}

func (d *Driver) read(ctx context.Context) (*engine.Snapshot, error) {
	raw, err := d.source.Read(ctx)
	if errors.Is(err, ErrNoRecord) {
		return engine.NewSnapshot(), nil
	}
	if err != nil {
		return nil, err
	}
	return engine.Decode(raw)
}

func (d *Driver) submit(ctx context.Context, a engine.Action) error {
	b, err := a.Encode()
	if err != nil {
		return err
	}
	d.logger.Debug("submitting", "action", a)
	return d.sink.Submit(ctx, b)
}

func (d *Driver) wait(ctx context.Context) error {
	t := d.clock.NewTimer(d.poll, "driver", "poll")
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
