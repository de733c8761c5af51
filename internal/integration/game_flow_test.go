package integration

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stratego-online/stratego-server-go/internal/ai"
	"github.com/stratego-online/stratego-server-go/internal/game"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
	"github.com/stratego-online/stratego-server-go/internal/game/rules"
	"github.com/stratego-online/stratego-server-go/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// maxHumanMoves bounds the scripted player before it gives up and forfeits.
const maxHumanMoves = 400

// memoryStore keeps the newest snapshot per game, like the postgres repository.
type memoryStore struct {
	mu    sync.Mutex
	games map[string]*game.Snapshot
}

func newMemoryStore() *memoryStore {
	return &memoryStore{games: make(map[string]*game.Snapshot)}
}

func (s *memoryStore) SaveGame(_ context.Context, snap *game.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.games[snap.GameID]; ok && cur.Version >= snap.Version {
		return nil
	}
	s.games[snap.GameID] = snap
	return nil
}

func (s *memoryStore) get(gameID string) (*game.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.games[gameID]
	return snap, ok
}

type gameServerEnv struct {
	engine   *game.Engine
	client   *server.StrategoClient
	store    *memoryStore
	replays  *game.ReplayRecorder
	replayAt string
}

// newGameServerEnv wires an engine the way cmd/server does and serves it over bufconn.
func newGameServerEnv(t *testing.T) *gameServerEnv {
	t.Helper()
	// Handlers run on their own goroutines and may log after the test returns.
	logger := zap.NewNop()

	replayDir := t.TempDir()
	replays := game.NewReplayRecorder(logger, replayDir)
	engine := game.NewEngine(logger, game.Options{
		Opponent: ai.NewSeededOpponent(11, logger),
		Replays:  replays,
	})

	store := newMemoryStore()
	watchers := server.NewBroadcaster()
	persister := server.NewPersister(engine, store, logger)
	engine.SetNotificationHandler(server.FanOut(watchers.Publish, persister.Handle))

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(server.ChainUnaryInterceptors(
		server.RecoveryInterceptor(logger),
		server.LoggingInterceptor(logger),
	)))
	server.RegisterStrategoServiceServer(srv, server.NewStrategoServer(engine, watchers, "integration", logger))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &gameServerEnv{
		engine:   engine,
		client:   server.NewStrategoClient(conn),
		store:    store,
		replays:  replays,
		replayAt: replayDir,
	}
}

// playAgainstComputer drives Red with a seeded opponent until the game ends.
func playAgainstComputer(t *testing.T, env *gameServerEnv, gameID string) *game.GameView {
	t.Helper()
	ctx := context.Background()
	red := ai.NewSeededOpponent(23, zap.NewNop())

	for i := 0; i < maxHumanMoves; i++ {
		snap, err := env.engine.Snapshot(gameID)
		require.NoError(t, err)
		if snap.State.Phase.Terminal() {
			break
		}
		require.Equal(t, pieces.Red, snap.State.CurrentTurn)

		mv, ok := red.SelectMove(&snap.State, ai.Medium)
		require.True(t, ok, "red has no legal move but the game is still running")

		resp, err := env.client.MakeMove(ctx, &server.MakeMoveRequest{
			PlayerID: "alice",
			GameID:   gameID,
			From:     mv.From,
			To:       mv.To,
		})
		require.NoError(t, err)
		if resp.Outcome.View.Phase.Terminal() {
			return resp.Outcome.View
		}
	}

	resp, err := env.client.GetGameView(ctx, &server.GameRequest{PlayerID: "alice", GameID: gameID})
	require.NoError(t, err)
	if !resp.View.Phase.Terminal() {
		_, err = env.client.Forfeit(ctx, &server.GameRequest{PlayerID: "alice", GameID: gameID})
		require.NoError(t, err)
		resp, err = env.client.GetGameView(ctx, &server.GameRequest{PlayerID: "alice", GameID: gameID})
		require.NoError(t, err)
	}
	return resp.View
}

func TestFullGameAgainstComputer(t *testing.T) {
	env := newGameServerEnv(t)
	ctx := context.Background()

	created, err := env.client.CreateGame(ctx, &server.CreateGameRequest{
		PlayerID:   "alice",
		VsAI:       true,
		Difficulty: "hard",
	})
	require.NoError(t, err)
	gameID := created.Game.GameID
	assert.Equal(t, rules.PhaseSetup, created.Game.Phase)
	assert.Equal(t, game.AIPlayerID, created.Game.BluePlayer)

	setup := ai.NewSeededOpponent(3, zap.NewNop()).GenerateSetup(pieces.Red)
	view, err := env.client.SubmitSetup(ctx, &server.SubmitSetupRequest{
		PlayerID:   "alice",
		GameID:     gameID,
		Placements: setup,
	})
	require.NoError(t, err)
	require.Equal(t, rules.PhaseInProgress, view.View.Phase)
	assert.True(t, view.View.IsMyTurn)

	final := playAgainstComputer(t, env, gameID)
	require.True(t, final.Phase.Terminal())

	history, err := env.client.GetMoveHistory(ctx, &server.GameRequest{PlayerID: "alice", GameID: gameID})
	require.NoError(t, err)
	assert.Len(t, history.Moves, final.MoveCount)
	for i, mv := range history.Moves {
		assert.Equal(t, i+1, mv.Sequence)
		if mv.Color == pieces.Blue && mv.Result == rules.ResultMove {
			assert.Nil(t, mv.Rank, "plain computer moves keep their rank hidden")
		}
	}

	// The persister runs asynchronously; wait for the final version.
	engineSnap, err := env.engine.Snapshot(gameID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		stored, ok := env.store.get(gameID)
		return ok && stored.Version == engineSnap.Version
	}, 5*time.Second, 10*time.Millisecond)

	stored, _ := env.store.get(gameID)
	want, err := engineSnap.ComputeChecksum()
	require.NoError(t, err)
	ok, err := stored.VerifyChecksum(want)
	require.NoError(t, err)
	assert.True(t, ok, "stored snapshot differs from the live game")

	_, recording := env.replays.Recording(gameID)
	assert.False(t, recording, "finished games are no longer recorded")
	replay, err := game.LoadReplay(env.replayAt, gameID)
	require.NoError(t, err)
	last := replay.Final()
	require.NotNil(t, last)
	ok, err = last.VerifyChecksum(want)
	require.NoError(t, err)
	assert.True(t, ok, "last replay frame differs from the live game")
}

func TestStoredGameResumesOnFreshEngine(t *testing.T) {
	env := newGameServerEnv(t)
	ctx := context.Background()

	created, err := env.client.CreateGame(ctx, &server.CreateGameRequest{PlayerID: "alice"})
	require.NoError(t, err)
	gameID := created.Game.GameID
	_, err = env.client.JoinGame(ctx, &server.GameRequest{PlayerID: "bob", GameID: gameID})
	require.NoError(t, err)

	_, err = env.client.SubmitSetup(ctx, &server.SubmitSetupRequest{
		PlayerID:   "alice",
		GameID:     gameID,
		Placements: ai.NewSeededOpponent(1, zap.NewNop()).GenerateSetup(pieces.Red),
	})
	require.NoError(t, err)
	_, err = env.client.SubmitSetup(ctx, &server.SubmitSetupRequest{
		PlayerID:   "bob",
		GameID:     gameID,
		Placements: ai.NewSeededOpponent(2, zap.NewNop()).GenerateSetup(pieces.Blue),
	})
	require.NoError(t, err)

	snap, err := env.engine.Snapshot(gameID)
	require.NoError(t, err)
	moves := rules.GetValidMoves(&snap.State.Board, pieces.Red)
	require.NotEmpty(t, moves)
	_, err = env.client.MakeMove(ctx, &server.MakeMoveRequest{
		PlayerID: "alice",
		GameID:   gameID,
		From:     moves[0].From,
		To:       moves[0].To,
	})
	require.NoError(t, err)

	live, err := env.engine.Snapshot(gameID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		stored, ok := env.store.get(gameID)
		return ok && stored.Version == live.Version
	}, 5*time.Second, 10*time.Millisecond)

	// A restarted server picks the game up where it was left.
	stored, _ := env.store.get(gameID)
	fresh := game.NewEngine(zap.NewNop(), game.Options{Opponent: ai.NewSeededOpponent(11, zap.NewNop())})
	require.Equal(t, 1, server.RestoreGames(fresh, []*game.Snapshot{stored}, zap.NewNop()))

	bobView, err := fresh.GetGameView(gameID, "bob")
	require.NoError(t, err)
	assert.True(t, bobView.IsMyTurn)
	assert.Equal(t, 1, bobView.MoveCount)

	blue := rules.GetValidMoves(&stored.State.Board, pieces.Blue)
	require.NotEmpty(t, blue)
	outcome, err := fresh.MakeMove(gameID, "bob", blue[0].From, blue[0].To)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.View.MoveCount)
}
