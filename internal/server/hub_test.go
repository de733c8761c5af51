package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stratego-online/stratego-server-go/internal/game"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
	"github.com/stratego-online/stratego-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dialWS(t *testing.T, api *apiClient, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(api.url, "http") + "/ws?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string, out interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", msgType)
		var msg wsMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type != msgType {
			continue
		}
		if out != nil {
			require.NoError(t, json.Unmarshal(msg.Payload, out))
		}
		return
	}
}

func sendWS(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(wsMessage{Type: msgType, Payload: mustMarshal(payload)}))
}

func TestHubLobbyUpdates(t *testing.T) {
	engine := newTestEngine(t)
	api, hub := startHTTP(t, engine)
	engine.SetNotificationHandler(hub.Handle)

	lobby := dialWS(t, api, "player_id=watcher")
	var games ListGamesResponse
	readUntil(t, lobby, "lobby", &games)
	assert.Empty(t, games.Games)

	var created GameSummaryResponse
	require.Equal(t, http.StatusCreated, api.do("POST", "/api/games", "alice", CreateGameRequest{}, &created))

	readUntil(t, lobby, "lobby", &games)
	require.Len(t, games.Games, 1)
	assert.Equal(t, created.Game.GameID, games.Games[0].GameID)
}

func TestHubPushesPerPlayerViews(t *testing.T) {
	engine := newTestEngine(t)
	api, hub := startHTTP(t, engine)
	engine.SetNotificationHandler(hub.Handle)

	var created GameSummaryResponse
	require.Equal(t, http.StatusCreated, api.do("POST", "/api/games", "alice", CreateGameRequest{}, &created))
	gameID := created.Game.GameID

	alice := dialWS(t, api, "player_id=alice&game_id="+gameID)
	var update GameUpdate
	readUntil(t, alice, "game_update", &update)
	assert.Equal(t, "SNAPSHOT", update.Event)
	assert.Equal(t, rules.PhaseWaiting, update.View.Phase)

	require.Equal(t, http.StatusOK, api.do("POST", "/api/games/"+gameID+"/join", "bob", nil, nil))
	readUntil(t, alice, "game_update", &update)
	assert.Equal(t, game.NotifyPlayerJoined, update.Event)
	assert.Equal(t, "bob", update.View.BluePlayer)

	bob := dialWS(t, api, "player_id=bob")
	readUntil(t, bob, "lobby", nil)
	sendWS(t, bob, "subscribe", wsSubscribe{GameID: gameID})
	readUntil(t, bob, "game_update", &update)
	assert.Equal(t, pieces.Blue, update.View.PlayerColor)

	require.Equal(t, http.StatusOK, api.do("POST", "/api/games/"+gameID+"/setup", "alice", SubmitSetupRequest{Placements: setupFor(t, 1, pieces.Red)}, nil))
	require.Equal(t, http.StatusOK, api.do("POST", "/api/games/"+gameID+"/setup", "bob", SubmitSetupRequest{Placements: setupFor(t, 2, pieces.Blue)}, nil))

	mv := legalMove(t, engine, gameID, pieces.Red)
	sendWS(t, alice, "move", wsMove{From: mv.From, To: mv.To})
	var result MakeMoveResponse
	readUntil(t, alice, "move_result", &result)
	assert.Equal(t, 1, result.Outcome.Move.Sequence)

	// Bob eventually sees the move without Red's hidden ranks.
	for {
		var u GameUpdate
		readUntil(t, bob, "game_update", &u)
		if u.View.MoveCount >= 1 {
			update = u
			break
		}
	}
	assert.Equal(t, pieces.Blue, update.View.PlayerColor)
	for _, row := range update.View.Board {
		for _, sq := range row {
			if sq.Piece != nil && sq.Piece.Color == pieces.Red && !sq.Piece.Revealed {
				assert.Nil(t, sq.Piece.Rank)
			}
		}
	}
}

func TestHubRejectsBadMessages(t *testing.T) {
	engine := newTestEngine(t)
	api, _ := startHTTP(t, engine)

	conn := dialWS(t, api, "player_id=alice")
	readUntil(t, conn, "lobby", nil)

	var wsErr wsError
	sendWS(t, conn, "dance", nil)
	readUntil(t, conn, "error", &wsErr)
	assert.Equal(t, "INVALID_REQUEST", wsErr.Code)

	sendWS(t, conn, "subscribe", wsSubscribe{GameID: "missing"})
	readUntil(t, conn, "error", &wsErr)
	assert.Equal(t, "GAME_NOT_FOUND", wsErr.Code)

	sendWS(t, conn, "move", wsMove{})
	readUntil(t, conn, "error", &wsErr)
	assert.Equal(t, "INVALID_REQUEST", wsErr.Code)

	sendWS(t, conn, "ping", nil)
	readUntil(t, conn, "pong", nil)
}

func TestHubRequiresPlayer(t *testing.T) {
	api, _ := startHTTP(t, newTestEngine(t))
	url := "ws" + strings.TrimPrefix(api.url, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHubUnregisterTwice(t *testing.T) {
	h := NewHub(newTestEngine(t), zap.NewNop())
	c := &Client{hub: h, send: make(chan []byte, 1), playerID: "alice"}

	h.Register(c)
	assert.Equal(t, 1, h.ClientCount())

	h.Unregister(c)
	h.Unregister(c)
	assert.Equal(t, 0, h.ClientCount())
	_, open := <-c.send
	assert.False(t, open, "send channel is closed on unregister")
}
