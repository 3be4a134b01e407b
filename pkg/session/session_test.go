package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/bgledger/internal/ledger"
	"github.com/yourusername/bgledger/internal/randutil"
	"github.com/yourusername/bgledger/pkg/engine"
	"github.com/yourusername/bgledger/pkg/match"
)

const testPoll = time.Millisecond

func TestAutoplayPlaysToTheEnd(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 42} {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		l := ledger.New(ledger.RandomDice(randutil.New(seed)), nil)
		nonce := randutil.Nonce(randutil.New(seed))
		results, err := Autoplay(ctx, l, nonce,
			NewRandom(randutil.New(seed+100)), NewRandom(randutil.New(seed+200)),
			nil, WithPollInterval(testPoll))
		require.NoError(t, err, "seed %d", seed)

		snap, err := l.Snapshot()
		require.NoError(t, err)
		assert.Equal(t, engine.StatusFinished, snap.Status)
		assert.Equal(t, engine.CheckersPerSide, snap.Position.Off[snap.Winner.Index()])
		assert.Equal(t, 1, snap.Multiplier)

		for _, res := range results {
			require.NotNil(t, res)
			assert.Equal(t, snap.Winner, res.Outcome.Winner)
			assert.False(t, res.Outcome.Dropped)
			assert.Equal(t, snap.Counter, res.Counter)
			assert.Zero(t, res.Rejected)
		}
		plies := results[0].Plies + results[1].Plies
		assert.Greater(t, plies, 10)
	}
}

func TestAutoplayWithCube(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	a, b := NewRandom(randutil.New(5)), NewRandom(randutil.New(6))
	a.Double, a.Take = 0.5, 0.8
	b.Double, b.Take = 0.5, 0.8

	l := ledger.New(ledger.RandomDice(randutil.New(9)), nil)
	rec := match.NewRecorder(match.NewMatch("a", "b"))
	results, err := Autoplay(ctx, l, [engine.NonceSize]byte{1}, a, b, rec, WithPollInterval(testPoll))
	require.NoError(t, err)

	snap, err := l.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), snap.GameID)
	out := results[0].Outcome
	assert.Equal(t, snap.Winner, out.Winner)
	assert.Equal(t, snap.Multiplier, out.Multiplier)
	assert.Contains(t, []int{1, 2, 4, 8, 16, 32, 64}, out.Multiplier)

	games := rec.Match().Games
	require.Len(t, games, 1)
	assert.NotEqual(t, match.ResultInProgress, games[0].Result)
	assert.Equal(t, snap.Winner, games[0].Winner)
	assert.Equal(t, out.Multiplier, games[0].Points)
	assert.False(t, games[0].Incomplete)

	counts := map[match.ActionType]int{}
	for _, act := range games[0].Actions {
		counts[act.Type]++
	}
	assert.Equal(t, results[0].Plies+results[1].Plies, counts[match.ActionMove], "every ply recorded")
	assert.Equal(t, counts[match.ActionMove], counts[match.ActionRoll])
	assert.Equal(t, counts[match.ActionDouble], counts[match.ActionTake]+counts[match.ActionPass])
	assert.Equal(t, 1<<counts[match.ActionTake], out.Multiplier)
}

// flaky fails every other call with ErrTransient.
type flaky struct {
	Local
	reads, submits atomic.Int32
}

func (f *flaky) Read(ctx context.Context) ([]byte, error) {
	if f.reads.Add(1)%2 == 1 {
		return nil, ErrTransient
	}
	return f.Local.Read(ctx)
}

func (f *flaky) Submit(ctx context.Context, action []byte) error {
	if f.submits.Add(1)%2 == 1 {
		return ErrTransient
	}
	return f.Local.Submit(ctx, action)
}

func TestDriverSurvivesTransientFailures(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	l := ledger.New(ledger.RandomDice(randutil.New(11)), nil)
	fa := &flaky{Local: Local{Ledger: l, Party: engine.PlayerA}}
	fb := &flaky{Local: Local{Ledger: l, Party: engine.PlayerB}}

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	errs := make([]error, 2)
	drivers := []*Driver{
		NewDriver(fa, fa, engine.NewMachine(engine.PlayerA, engine.AsInitiator([8]byte{7})), NewRandom(randutil.New(1)), WithPollInterval(testPoll)),
		NewDriver(fb, fb, engine.NewMachine(engine.PlayerB), NewRandom(randutil.New(2)), WithPollInterval(testPoll)),
	}
	for i, d := range drivers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = d.Run(ctx)
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].Outcome, results[1].Outcome)
	assert.Greater(t, fa.submits.Load(), int32(results[0].Submitted))
}

// scripted returns the encoded records in order, repeating the last.
type scripted struct {
	mu      sync.Mutex
	records [][]byte
	reads   int
}

func (s *scripted) Read(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.reads, len(s.records)-1)
	s.reads++
	return s.records[i], nil
}

func (s *scripted) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

type discardSink struct{ n atomic.Int32 }

func (d *discardSink) Submit(context.Context, []byte) error {
	d.n.Add(1)
	return nil
}

func turnDecision(turn engine.Player, counter uint32) *engine.Snapshot {
	return &engine.Snapshot{
		GameID:     3,
		Status:     engine.StatusTurnDecision,
		Turn:       turn,
		Multiplier: 1,
		Position:   engine.StartingPosition(),
		Counter:    counter,
	}
}

func TestDriverDetectsDesync(t *testing.T) {
	back := engine.NewSnapshot()
	back.Counter = 6

	tests := []struct {
		name   string
		second *engine.Snapshot
	}{
		{"status went back", back},
		{"counter went back", turnDecision(engine.PlayerB, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &scripted{records: [][]byte{
				engine.EncodeRecord(turnDecision(engine.PlayerB, 5)),
				engine.EncodeRecord(tt.second),
			}}
			d := NewDriver(src, &discardSink{}, engine.NewMachine(engine.PlayerA), NewRandom(randutil.New(1)), WithPollInterval(testPoll))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := d.Run(ctx)

			var desync *engine.ProtocolDesyncError
			require.ErrorAs(t, err, &desync)
		})
	}
}

func TestDriverRejectsMalformedRecord(t *testing.T) {
	src := &scripted{records: [][]byte{{1, 2, 3}}}
	d := NewDriver(src, &discardSink{}, engine.NewMachine(engine.PlayerA), NewRandom(randutil.New(1)))

	_, err := d.Run(context.Background())
	var de *engine.DecodeError
	require.ErrorAs(t, err, &de)
}

func TestDriverWaitsWhileOpponentIsToPlay(t *testing.T) {
	mClock := quartz.NewMock(t)
	src := &scripted{records: [][]byte{engine.EncodeRecord(turnDecision(engine.PlayerB, 4))}}
	sink := &discardSink{}
	var seen atomic.Int32
	d := NewDriver(src, sink, engine.NewMachine(engine.PlayerA), NewRandom(randutil.New(1)),
		WithClock(mClock), WithPollInterval(time.Second),
		WithObserver(func(*engine.Snapshot) { seen.Add(1) }))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		_, err := d.Run(runCtx)
		done <- err
	}()

	for src.count() < 4 {
		mClock.Advance(time.Second).MustWait(ctx)
		time.Sleep(time.Millisecond)
	}
	stop()

	err := <-done
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, sink.n.Load())
	assert.Equal(t, int32(1), seen.Load())
}

func TestDriverWaitsForConfirmation(t *testing.T) {
	// The record never moves on, so the roll is submitted exactly once.
	src := &scripted{records: [][]byte{engine.EncodeRecord(turnDecision(engine.PlayerA, 4))}}
	sink := &discardSink{}
	d := NewDriver(src, sink, engine.NewMachine(engine.PlayerA), NewRandom(randutil.New(1)), WithPollInterval(testPoll))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), sink.n.Load())
	assert.Greater(t, src.count(), 1)
}

func TestRandomPicksLegalMoves(t *testing.T) {
	r := NewRandom(randutil.New(3))
	s := turnDecision(engine.PlayerA, 1)
	s.Status = engine.StatusMoveInProgress
	s.Dice = [2]int{3, 1}
	view := engine.PlyView{Player: engine.PlayerA, Snapshot: s, Position: s.Position, Steps: s.Steps()}

	for range 50 {
		m, err := r.NextSubMove(context.Background(), view)
		require.NoError(t, err)
		assert.Contains(t, view.Legal(), m)
	}

	offer, err := r.OfferDouble(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, offer)
	take, err := r.AcceptDouble(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, take)

	view.Steps = nil
	_, err = r.NextSubMove(context.Background(), view)
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestScriptedReplaysMoves(t *testing.T) {
	d := NewScripted(
		engine.SubMove{Start: 1, Step: 2},
		engine.SubMove{Start: 17, Step: 3},
		engine.SubMove{Start: 19, Step: 1},
	)
	d.Accept = true
	s := turnDecision(engine.PlayerA, 1)
	s.Status = engine.StatusMoveInProgress
	s.Dice = [2]int{3, 1}

	res, err := engine.PlayTurn(context.Background(), s, engine.PlayerA, d)
	require.NoError(t, err)
	assert.Equal(t, []engine.SubMove{{Start: 17, Step: 3}, {Start: 19, Step: 1}}, res.Moves)
	assert.Equal(t, 1, res.Rejections)
	assert.Zero(t, d.Remaining())

	take, err := d.AcceptDouble(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, take)

	_, err = engine.PlayTurn(context.Background(), s, engine.PlayerA, d)
	assert.ErrorIs(t, err, ErrNoCandidate)
}
