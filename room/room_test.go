package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mo-shahab/pong-authority/client"
	"github.com/mo-shahab/pong-authority/game"
	"github.com/mo-shahab/pong-authority/paddle"
	"github.com/mo-shahab/pong-authority/wire"
)

func testConfig() Config {
	return Config{
		Game:               game.DefaultConfig(),
		Session:            game.SessionConfig{TickInterval: 5 * time.Millisecond, ImpulseTicks: 3},
		MaxRooms:           4,
		WaitingRoomTimeout: time.Minute,
	}
}

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	m, err := NewManager(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		m.Shutdown()
		cancel()
	})
	return m
}

func newTestClient(t *testing.T, codec wire.Codec) *client.Client {
	t.Helper()
	return client.New(nil, codec, 64, zaptest.NewLogger(t))
}

func isClosed(c *client.Client) bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}

func TestJoinAssignsSeatsThenSpectators(t *testing.T) {
	m := newTestManager(t, testConfig())

	first, second, third := newTestClient(t, wire.JSON), newTestClient(t, wire.JSON), newTestClient(t, wire.JSON)

	r, err := m.Join("", first, paddle.None)
	require.NoError(t, err)
	assert.Equal(t, LobbyID, r.ID)
	assert.Equal(t, paddle.Left, first.Role)
	assert.False(t, r.Started())

	_, err = m.Join(LobbyID, second, paddle.None)
	require.NoError(t, err)
	assert.Equal(t, paddle.Right, second.Role)
	assert.True(t, r.Started())

	_, err = m.Join(LobbyID, third, paddle.None)
	require.NoError(t, err)
	assert.Equal(t, paddle.None, third.Role)
	assert.Equal(t, 3, r.Clients())

	require.Eventually(t, func() bool {
		return r.Session().State() == game.Running
	}, time.Second, time.Millisecond)

	// Spectators receive the broadcast too.
	select {
	case msg := <-third.SendQueue:
		_, err := wire.JSON.DecodeState(msg)
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("spectator got no snapshot")
	}
}

func TestJoinRequestedSeat(t *testing.T) {
	m := newTestManager(t, testConfig())
	r, err := m.Create()
	require.NoError(t, err)

	right := newTestClient(t, wire.Proto)
	_, err = m.Join(r.ID, right, paddle.Right)
	require.NoError(t, err)
	assert.Equal(t, paddle.Right, right.Role)
	assert.Equal(t, r.ID, right.RoomID)

	_, err = m.Join(r.ID, newTestClient(t, wire.Proto), paddle.Right)
	assert.ErrorIs(t, err, ErrSeatTaken)

	left := newTestClient(t, wire.Proto)
	_, err = m.Join(r.ID, left, paddle.None)
	require.NoError(t, err)
	assert.Equal(t, paddle.Left, left.Role)

	_, err = m.Join(r.ID, newTestClient(t, wire.Proto), paddle.Left)
	assert.ErrorIs(t, err, ErrSeatTaken)
}

func TestLeaveFreesSeatAndClosesEmptyRoom(t *testing.T) {
	m := newTestManager(t, testConfig())
	r, err := m.Create()
	require.NoError(t, err)

	a, b := newTestClient(t, wire.JSON), newTestClient(t, wire.JSON)
	_, err = m.Join(r.ID, a, paddle.None)
	require.NoError(t, err)
	_, err = m.Join(r.ID, b, paddle.None)
	require.NoError(t, err)

	m.Leave(r, a)
	assert.Equal(t, 1, r.Clients())

	c := newTestClient(t, wire.JSON)
	_, err = m.Join(r.ID, c, paddle.None)
	require.NoError(t, err)
	assert.Equal(t, paddle.Left, c.Role, "freed seat is reused")

	m.Leave(r, b)
	m.Leave(r, c)
	_, ok := m.Get(r.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())

	_, err = m.Join(r.ID, newTestClient(t, wire.JSON), paddle.None)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLobbyIsRecreatedOnDemand(t *testing.T) {
	m := newTestManager(t, testConfig())

	a := newTestClient(t, wire.JSON)
	first, err := m.Join(LobbyID, a, paddle.None)
	require.NoError(t, err)
	m.Leave(first, a)
	assert.Equal(t, 0, m.Len())

	second, err := m.Join(LobbyID, newTestClient(t, wire.JSON), paddle.None)
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	// A late leave from the old lobby must not close the new one.
	m.Leave(first, a)
	_, ok := m.Get(LobbyID)
	assert.True(t, ok)
}

func TestGetOrCreateUnknownRoom(t *testing.T) {
	m := newTestManager(t, testConfig())
	_, err := m.GetOrCreate("abc123")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.ErrorIs(t, m.Close("abc123"), ErrRoomNotFound)
}

func TestCreateRespectsMaxRooms(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRooms = 2
	m := newTestManager(t, cfg)

	r, err := m.Create()
	require.NoError(t, err)
	assert.Len(t, r.ID, 6)
	_, err = m.Create()
	require.NoError(t, err)

	_, err = m.Create()
	assert.ErrorIs(t, err, ErrTooManyRooms)
	_, err = m.GetOrCreate(LobbyID)
	assert.ErrorIs(t, err, ErrTooManyRooms)
}

func TestWaitingRoomTimesOut(t *testing.T) {
	cfg := testConfig()
	cfg.WaitingRoomTimeout = 20 * time.Millisecond
	m := newTestManager(t, cfg)

	r, err := m.Create()
	require.NoError(t, err)
	assert.Greater(t, r.waiting.TimeLeft(), time.Duration(0))

	c := newTestClient(t, wire.JSON)
	_, err = m.Join(r.ID, c, paddle.None)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, time.Millisecond)
	assert.True(t, isClosed(c))

	_, err = m.Join(r.ID, newTestClient(t, wire.JSON), paddle.None)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestStartedRoomDoesNotTimeOut(t *testing.T) {
	cfg := testConfig()
	cfg.WaitingRoomTimeout = 20 * time.Millisecond
	m := newTestManager(t, cfg)

	r, err := m.Create()
	require.NoError(t, err)
	_, err = m.Join(r.ID, newTestClient(t, wire.JSON), paddle.None)
	require.NoError(t, err)
	_, err = m.Join(r.ID, newTestClient(t, wire.JSON), paddle.None)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	_, ok := m.Get(r.ID)
	assert.True(t, ok)
}

func TestHandleInputRejectsOtherPaddles(t *testing.T) {
	m := newTestManager(t, testConfig())
	r, err := m.Create()
	require.NoError(t, err)

	player := newTestClient(t, wire.JSON)
	_, err = m.Join(r.ID, player, paddle.Left)
	require.NoError(t, err)

	spectator := newTestClient(t, wire.JSON)
	assert.ErrorIs(t, r.HandleInput(spectator, wire.Command{Side: paddle.Left, Direction: paddle.Up, Pressed: true}), ErrSpectator)
	assert.ErrorIs(t, r.HandleInput(player, wire.Command{Side: paddle.Right, Direction: paddle.Up, Pressed: true}), ErrNotYourPaddle)
}

func TestHandleInputMovesOwnPaddle(t *testing.T) {
	m := newTestManager(t, testConfig())
	r, err := m.Create()
	require.NoError(t, err)

	player := newTestClient(t, wire.JSON)
	_, err = m.Join(r.ID, player, paddle.Left)
	require.NoError(t, err)

	require.NoError(t, r.HandleInput(player, wire.Command{Side: paddle.Left, Direction: paddle.Down, Impulse: true, Pressed: true}))

	s := r.Session()
	require.True(t, s.Start())
	for i := 0; i < 5; i++ {
		s.Step()
	}
	assert.Equal(t, 150.0+3*game.DefaultPaddleSpeed, s.Snapshot().Left.Y)

	m.Leave(r, player)
	assert.Equal(t, 0, m.Len())
}

func TestBroadcastEncodesPerCodec(t *testing.T) {
	m := newTestManager(t, testConfig())
	r, err := m.Create()
	require.NoError(t, err)

	jsonClient, packClient := newTestClient(t, wire.JSON), newTestClient(t, wire.Msgpack)
	_, err = m.Join(r.ID, jsonClient, paddle.Left)
	require.NoError(t, err)
	require.NoError(t, r.SendSnapshot(jsonClient))

	msg := <-jsonClient.SendQueue
	s, err := wire.JSON.DecodeState(msg)
	require.NoError(t, err)
	assert.Equal(t, 150.0, s.Player1.Y)

	// Only one seat is filled, so nothing is ticking; broadcast by hand.
	r.mu.Lock()
	r.clients[packClient.ID] = packClient
	r.mu.Unlock()

	snap := r.Session().Snapshot()
	snap.Ball.X = 123
	r.Broadcast(snap)

	got, err := wire.JSON.DecodeState(<-jsonClient.SendQueue)
	require.NoError(t, err)
	assert.Equal(t, 123.0, got.Ball.X)

	got, err = wire.Msgpack.DecodeState(<-packClient.SendQueue)
	require.NoError(t, err)
	assert.Equal(t, 123.0, got.Ball.X)
}

func TestShutdownClosesEverything(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, err := NewManager(ctx, testConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	a, b := newTestClient(t, wire.JSON), newTestClient(t, wire.JSON)
	r, err := m.Join(LobbyID, a, paddle.None)
	require.NoError(t, err)
	_, err = m.Join(LobbyID, b, paddle.None)
	require.NoError(t, err)
	require.True(t, r.Started())

	m.Shutdown()
	assert.Equal(t, 0, m.Len())
	assert.True(t, isClosed(a))
	assert.True(t, isClosed(b))
	assert.Equal(t, game.Running, r.Session().State())
}

func TestExpireOnlyClosesUnstartedRooms(t *testing.T) {
	m := newTestManager(t, testConfig())

	waiting, err := m.Create()
	require.NoError(t, err)
	lonely := newTestClient(t, wire.JSON)
	_, err = m.Join(waiting.ID, lonely, paddle.None)
	require.NoError(t, err)

	full, err := m.Create()
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = m.Join(full.ID, newTestClient(t, wire.JSON), paddle.None)
		require.NoError(t, err)
	}

	assert.False(t, full.expire(), "a started game is never expired")
	_, err = m.Join(full.ID, newTestClient(t, wire.JSON), paddle.None)
	assert.NoError(t, err)

	assert.True(t, waiting.expire())
	assert.True(t, isClosed(lonely))
	assert.False(t, waiting.expire(), "already closed")

	_, err = m.Join(waiting.ID, newTestClient(t, wire.JSON), paddle.None)
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestFinishedLobbyIsReplaced(t *testing.T) {
	cfg := testConfig()
	cfg.Game.WinScore = 1
	// One tick parks both paddles at the top so the first serve scores.
	cfg.Game.PaddleSpeed = 150
	m := newTestManager(t, cfg)

	a, b := newTestClient(t, wire.JSON), newTestClient(t, wire.JSON)
	old, err := m.Join(LobbyID, a, paddle.None)
	require.NoError(t, err)
	require.NoError(t, old.HandleInput(a, wire.Command{Side: paddle.Left, Direction: paddle.Up, Pressed: true}))
	_, err = m.Join(LobbyID, b, paddle.None)
	require.NoError(t, err)
	require.NoError(t, old.HandleInput(b, wire.Command{Side: paddle.Right, Direction: paddle.Up, Pressed: true}))

	require.Eventually(t, func() bool {
		_, ok := m.Get(LobbyID)
		return !ok
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, game.Finished, old.Session().State())
	assert.False(t, isClosed(a), "players keep the final score on screen")

	c := newTestClient(t, wire.JSON)
	fresh, err := m.Join(LobbyID, c, paddle.None)
	require.NoError(t, err)
	assert.NotSame(t, old, fresh)
	assert.Equal(t, paddle.Left, c.Role)

	m.Leave(old, a)
	m.Leave(old, b)
	m.mu.Lock()
	assert.Empty(t, m.retired)
	m.mu.Unlock()
	_, ok := m.Get(LobbyID)
	assert.True(t, ok, "closing the old lobby leaves the new one alone")
}
