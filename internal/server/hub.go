package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stratego-online/stratego-server-go/internal/game"
	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"go.uber.org/zap"
)

const (
	wsIdlePingInterval = 30 * time.Second
	wsSendBuffer       = 16
	wsReadLimit        = 64 << 10
)

// Hub pushes per-player game views to connected WebSocket clients. A client
// watches either the lobby (no game) or a single game.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}

	engine   *game.Engine
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// Client is one WebSocket connection.
type Client struct {
	hub      *Hub
	send     chan []byte
	playerID string
	gameID   string // guarded by hub.mu
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsSubscribe struct {
	GameID string `json:"game_id"`
}

type wsMove struct {
	From board.Position `json:"from"`
	To   board.Position `json:"to"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewHub creates a hub serving views from engine.
func NewHub(engine *game.Engine, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		engine:  engine,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Register adds a connected client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel. Repeated calls are no-ops.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) setGame(c *Client, gameID string) {
	h.mu.Lock()
	c.gameID = gameID
	h.mu.Unlock()
}

func (h *Hub) gameOf(c *Client) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return c.gameID
}

// Handle is a game.NotificationHandler. Game watchers get their own view of the
// game; lobby watchers get the open game list when it may have changed.
func (h *Hub) Handle(n game.GameNotification) {
	type delivery struct {
		client *Client
		data   []byte
	}

	h.mu.Lock()
	var watchers, lobby []*Client
	for c := range h.clients {
		switch c.gameID {
		case n.GameID:
			watchers = append(watchers, c)
		case "":
			lobby = append(lobby, c)
		}
	}
	h.mu.Unlock()

	var out []delivery
	for _, c := range watchers {
		view, err := h.engine.GetGameView(n.GameID, c.playerID)
		if err != nil {
			continue
		}
		out = append(out, delivery{c, mustMarshal(wsMessage{
			Type:    "game_update",
			Payload: mustMarshal(GameUpdate{Event: n.Type, Version: view.Version, View: view}),
		})})
	}
	if len(lobby) > 0 && lobbyChanged(n.Type) {
		data := mustMarshal(wsMessage{Type: "lobby", Payload: mustMarshal(ListGamesResponse{Games: h.engine.ListOpenGames()})})
		for _, c := range lobby {
			out = append(out, delivery{c, data})
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, d := range out {
		if _, ok := h.clients[d.client]; ok {
			d.client.sendRaw(d.data)
		}
	}
}

func lobbyChanged(kind string) bool {
	switch kind {
	case game.NotifyGameCreated, game.NotifyPlayerJoined, game.NotifyGameAbandoned:
		return true
	}
	return false
}

func (c *Client) sendRaw(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendJSON(msgType string, payload interface{}) {
	c.sendRaw(mustMarshal(wsMessage{Type: msgType, Payload: mustMarshal(payload)}))
}

func (c *Client) sendError(err error) {
	c.sendJSON("error", wsError{Code: errorReason(err), Message: err.Error()})
}

// ServeWS upgrades the request and serves one client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	playerID := playerFromRequest(r)
	if playerID == "" {
		writeError(w, game.ErrInvalidPlayer)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(wsReadLimit)

	client := &Client{hub: h, send: make(chan []byte, wsSendBuffer), playerID: playerID}
	h.Register(client)
	h.logger.Debug("websocket connected", zap.String("player_id", playerID))

	if gameID := r.URL.Query().Get("game_id"); gameID != "" {
		h.subscribe(client, gameID)
	} else {
		client.sendJSON("lobby", ListGamesResponse{Games: h.engine.ListOpenGames()})
	}

	go func() {
		defer conn.Close()
		if err := writeWSWithHeartbeat(conn, client.send); err != nil {
			h.logger.Debug("websocket write failed", zap.String("player_id", playerID), zap.Error(err))
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			h.Unregister(client)
			h.logger.Debug("websocket disconnected", zap.String("player_id", playerID))
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.sendError(invalidf("malformed message"))
			continue
		}
		h.dispatch(client, msg)
	}
}

func (h *Hub) dispatch(c *Client, msg wsMessage) {
	switch msg.Type {
	case "subscribe":
		var sub wsSubscribe
		if err := json.Unmarshal(msg.Payload, &sub); err != nil || sub.GameID == "" {
			c.sendError(invalidf("subscribe needs a game_id"))
			return
		}
		h.subscribe(c, sub.GameID)
	case "unsubscribe":
		h.setGame(c, "")
		c.sendJSON("lobby", ListGamesResponse{Games: h.engine.ListOpenGames()})
	case "request_view":
		gameID := h.gameOf(c)
		if gameID == "" {
			c.sendJSON("lobby", ListGamesResponse{Games: h.engine.ListOpenGames()})
			return
		}
		h.subscribe(c, gameID)
	case "move":
		gameID := h.gameOf(c)
		var mv wsMove
		if err := json.Unmarshal(msg.Payload, &mv); err != nil || gameID == "" {
			c.sendError(invalidf("move needs a subscribed game and from/to"))
			return
		}
		outcome, err := h.engine.MakeMove(gameID, c.playerID, mv.From, mv.To)
		if err != nil {
			c.sendError(err)
			return
		}
		c.sendJSON("move_result", MakeMoveResponse{Outcome: outcome})
	case "ping":
		c.sendJSON("pong", nil)
	default:
		c.sendError(invalidf("unknown message type %q", msg.Type))
	}
}

func (h *Hub) subscribe(c *Client, gameID string) {
	view, err := h.engine.GetGameView(gameID, c.playerID)
	if err != nil {
		c.sendError(err)
		return
	}
	h.setGame(c, gameID)
	c.sendJSON("game_update", GameUpdate{Event: "SNAPSHOT", Version: view.Version, View: view})
}

func writeWSWithHeartbeat(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	pingPayload := mustMarshal(wsMessage{Type: "ping"})

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, pingPayload); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}

func mustMarshal(v interface{}) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
