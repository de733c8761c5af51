package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stratego-online/stratego-server-go/internal/game"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
	"github.com/stratego-online/stratego-server-go/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// memoryStore mimics the repository's version guard.
type memoryStore struct {
	mu    sync.Mutex
	saved map[string]*game.Snapshot
	fail  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saved: make(map[string]*game.Snapshot)}
}

func (m *memoryStore) SaveGame(ctx context.Context, snap *game.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if prev, ok := m.saved[snap.GameID]; ok && prev.Version >= snap.Version {
		return repository.ErrStaleVersion
	}
	m.saved[snap.GameID] = snap
	return nil
}

func (m *memoryStore) version(gameID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap, ok := m.saved[gameID]; ok {
		return snap.Version
	}
	return 0
}

func TestPersisterSavesLatestSnapshot(t *testing.T) {
	engine := newTestEngine(t)
	store := newMemoryStore()
	p := NewPersister(engine, store, zaptest.NewLogger(t))

	created, err := engine.CreateGame("alice", game.GameOptions{})
	require.NoError(t, err)

	p.Handle(game.GameNotification{Type: game.NotifyGameCreated, GameID: created.GameID})
	assert.Equal(t, created.Version, store.version(created.GameID))

	// A repeated notification is a stale write and leaves the store alone.
	p.Handle(game.GameNotification{Type: game.NotifyGameCreated, GameID: created.GameID})
	assert.Equal(t, created.Version, store.version(created.GameID))

	joined, err := engine.JoinGame(created.GameID, "bob")
	require.NoError(t, err)
	p.Handle(game.GameNotification{Type: game.NotifyPlayerJoined, GameID: created.GameID})
	assert.Equal(t, joined.Version, store.version(created.GameID))

	p.Handle(game.GameNotification{Type: game.NotifyMoveMade, GameID: "missing"})
	assert.Equal(t, int64(0), store.version("missing"))
}

func TestPersisterSurvivesStoreFailure(t *testing.T) {
	engine := newTestEngine(t)
	store := newMemoryStore()
	store.fail = errors.New("connection refused")
	p := NewPersister(engine, store, zaptest.NewLogger(t))

	created, err := engine.CreateGame("alice", game.GameOptions{})
	require.NoError(t, err)
	p.Handle(game.GameNotification{Type: game.NotifyGameCreated, GameID: created.GameID})
	assert.Equal(t, int64(0), store.version(created.GameID))
}

func TestPersistAndRestoreAcrossEngines(t *testing.T) {
	engine := newTestEngine(t)
	store := newMemoryStore()
	p := NewPersister(engine, store, zap.NewNop())
	watchers := NewBroadcaster()
	engine.SetNotificationHandler(FanOut(p.Handle, watchers.Publish))

	created, err := engine.CreateGame("alice", game.GameOptions{VsAI: true})
	require.NoError(t, err)
	view, err := engine.SubmitSetup(created.GameID, "alice", setupFor(t, 4, pieces.Red))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return store.version(created.GameID) == view.Version
	}, 5*time.Second, 10*time.Millisecond)

	store.mu.Lock()
	snaps := []*game.Snapshot{store.saved[created.GameID]}
	store.mu.Unlock()

	restoredEngine := newTestEngine(t)
	logger := zaptest.NewLogger(t)
	assert.Equal(t, 1, RestoreGames(restoredEngine, snaps, logger))
	assert.Equal(t, 0, RestoreGames(restoredEngine, snaps, logger))

	restored, err := restoredEngine.GetGameView(created.GameID, "alice")
	require.NoError(t, err)
	assert.Equal(t, view.Board, restored.Board)
	assert.Equal(t, view.Phase, restored.Phase)
}
