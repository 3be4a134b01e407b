package client

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/yourusername/bgledger/pkg/session"
)

// Retry retries transient failures with exponential backoff. Errors that do
// not wrap session.ErrTransient are returned at once.
type Retry struct {
	Attempts   int           // total attempts, at least 1
	Backoff    time.Duration // wait before the second attempt
	MaxBackoff time.Duration // cap on the wait; zero means 16x Backoff
	Clock      quartz.Clock
	Logger     *log.Logger
}

// Do runs fn until it succeeds, fails permanently or attempts run out.
func (r Retry) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	clock := r.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	logger := r.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	limit := r.MaxBackoff
	if limit <= 0 {
		limit = 16 * r.Backoff
	}

	wait := r.Backoff
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, session.ErrTransient) || attempt >= r.Attempts {
			return err
		}
		logger.Debug("retrying", "op", op, "attempt", attempt, "wait", wait, "err", err)

		t := clock.NewTimer(wait, "client", "backoff")
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		wait = min(2*wait, limit)
	}
}

// Source wraps src so reads are retried.
func (r Retry) Source(src session.SnapshotSource) session.SnapshotSource {
	return retrySource{r: r, src: src}
}

// Sink wraps sink so unconfirmed submissions are retried. A retried action
// that the ledger already applied is rejected on the second attempt, which
// the driver resolves by re-reading the record.
func (r Retry) Sink(sink session.ActionSink) session.ActionSink {
	return retrySink{r: r, sink: sink}
}

type retrySource struct {
	r   Retry
	src session.SnapshotSource
}

func (s retrySource) Read(ctx context.Context) ([]byte, error) {
	var out []byte
	err := s.r.Do(ctx, "read", func(ctx context.Context) error {
		b, err := s.src.Read(ctx)
		out = b
		return err
	})
	return out, err
}

type retrySink struct {
	r    Retry
	sink session.ActionSink
}

func (s retrySink) Submit(ctx context.Context, action []byte) error {
	return s.r.Do(ctx, "submit", func(ctx context.Context) error {
		return s.sink.Submit(ctx, action)
	})
}
