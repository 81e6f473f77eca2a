package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mo-shahab/pong-authority/paddle"
)

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) Broadcast(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func newTestSession(t *testing.T, cfg Config, impulseTicks int, b Broadcaster) *Session {
	t.Helper()
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return NewSession(e, SessionConfig{TickInterval: time.Millisecond, ImpulseTicks: impulseTicks}, b, zaptest.NewLogger(t))
}

func TestSessionStepBroadcasts(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, DefaultConfig(), 3, rec)
	require.True(t, s.Start())

	s.Step()
	s.Step()

	require.Equal(t, 2, rec.count())
	assert.Equal(t, uint64(2), rec.snaps[1].Tick)
	assert.Equal(t, s.Snapshot(), rec.snaps[1])
}

func TestSessionImpulseReleasesAfterHold(t *testing.T) {
	s := newTestSession(t, DefaultConfig(), 3, nil)
	require.True(t, s.Start())

	s.Impulse(paddle.Left, paddle.Up)
	for i := 0; i < 5; i++ {
		s.Step()
	}

	assert.Equal(t, 150.0-3*DefaultPaddleSpeed, s.Snapshot().Left.Y)
}

func TestSessionImpulseExtendsHold(t *testing.T) {
	s := newTestSession(t, DefaultConfig(), 2, nil)
	require.True(t, s.Start())

	s.Impulse(paddle.Right, paddle.Down)
	s.Step()
	s.Impulse(paddle.Right, paddle.Down)
	for i := 0; i < 4; i++ {
		s.Step()
	}

	assert.Equal(t, 150.0+3*DefaultPaddleSpeed, s.Snapshot().Right.Y)
}

func TestSessionLevelInputCancelsImpulse(t *testing.T) {
	s := newTestSession(t, DefaultConfig(), 10, nil)
	require.True(t, s.Start())

	s.Impulse(paddle.Left, paddle.Down)
	s.Step()
	s.ApplyInput(paddle.Left, paddle.Down, true)
	for i := 0; i < 15; i++ {
		s.Step()
	}
	assert.Equal(t, 150.0+16*DefaultPaddleSpeed, s.Snapshot().Left.Y)

	s.Release(paddle.Left)
	s.Step()
	assert.Equal(t, 150.0+16*DefaultPaddleSpeed, s.Snapshot().Left.Y)
}

func TestSessionRunStopsOnCancel(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, DefaultConfig(), 1, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.count() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, Running, s.State())
}

func TestSessionRunReturnsWhenFinished(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WinScore = 1
	s := newTestSession(t, cfg, 1, nil)

	// Park both paddles at the top so the first rally ends in a goal.
	snap := s.Snapshot()
	snap.Left.Y, snap.Right.Y = 0, 0
	require.NoError(t, s.engine.Restore(snap))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	final := s.Snapshot()
	assert.Equal(t, Finished, final.State)
	assert.Equal(t, paddle.Left, final.Winner)
}

func TestBroadcasterFunc(t *testing.T) {
	var got Snapshot
	b := BroadcasterFunc(func(snap Snapshot) { got = snap })
	b.Broadcast(Snapshot{Tick: 7})
	assert.Equal(t, uint64(7), got.Tick)
}
