package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stratego-online/stratego-server-go/internal/ai"
	"github.com/stratego-online/stratego-server-go/internal/game"
	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"go.uber.org/zap"
)

// PlayerHeader carries the caller's player id on HTTP requests.
const PlayerHeader = "X-Player-ID"

// API serves the REST endpoints and the WebSocket upgrade.
type API struct {
	engine *game.Engine
	hub    *Hub
	logger *zap.Logger
}

// NewAPI creates the HTTP API. hub may be nil to disable WebSockets.
func NewAPI(engine *game.Engine, hub *Hub, logger *zap.Logger) *API {
	return &API{engine: engine, hub: hub, logger: logger}
}

// Router builds the chi router. The WebSocket endpoint is mounted at wsPath.
func (a *API) Router(wsPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(a.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "games": a.engine.GameCount()})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/games", a.listOpenGames)
		r.Post("/games", a.createGame)
		r.Get("/players/me/games", a.listMyGames)
		r.Route("/games/{gameID}", func(r chi.Router) {
			r.Get("/", a.getView)
			r.Post("/join", a.joinGame)
			r.Post("/setup", a.submitSetup)
			r.Get("/moves", a.moveHistory)
			r.Post("/moves", a.makeMove)
			r.Get("/valid-moves", a.validMoves)
			r.Post("/forfeit", a.forfeit)
		})
	})

	if a.hub != nil {
		r.Get(wsPath, a.hub.ServeWS)
	}
	return r
}

func (a *API) listOpenGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ListGamesResponse{Games: a.engine.ListOpenGames()})
}

func (a *API) listMyGames(w http.ResponseWriter, r *http.Request) {
	playerID := playerFromRequest(r)
	if playerID == "" {
		writeError(w, game.ErrInvalidPlayer)
		return
	}
	writeJSON(w, http.StatusOK, ListGamesResponse{Games: a.engine.ListGamesForPlayer(playerID)})
}

func (a *API) createGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	summary, err := a.engine.CreateGame(playerFromRequest(r), game.GameOptions{
		VsAI:       req.VsAI,
		Difficulty: ai.Difficulty(req.Difficulty),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, GameSummaryResponse{Game: summary})
}

func (a *API) joinGame(w http.ResponseWriter, r *http.Request) {
	summary, err := a.engine.JoinGame(chi.URLParam(r, "gameID"), playerFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GameSummaryResponse{Game: summary})
}

func (a *API) submitSetup(w http.ResponseWriter, r *http.Request) {
	var req SubmitSetupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := a.engine.SubmitSetup(chi.URLParam(r, "gameID"), playerFromRequest(r), req.Placements)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GameViewResponse{View: view})
}

func (a *API) makeMove(w http.ResponseWriter, r *http.Request) {
	var req MakeMoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	outcome, err := a.engine.MakeMove(chi.URLParam(r, "gameID"), playerFromRequest(r), req.From, req.To)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MakeMoveResponse{Outcome: outcome})
}

func (a *API) forfeit(w http.ResponseWriter, r *http.Request) {
	summary, err := a.engine.Forfeit(chi.URLParam(r, "gameID"), playerFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GameSummaryResponse{Game: summary})
}

func (a *API) getView(w http.ResponseWriter, r *http.Request) {
	view, err := a.engine.GetGameView(chi.URLParam(r, "gameID"), playerFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GameViewResponse{View: view})
}

func (a *API) moveHistory(w http.ResponseWriter, r *http.Request) {
	moves, err := a.engine.MoveHistory(chi.URLParam(r, "gameID"), playerFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MoveHistoryResponse{Moves: moves})
}

func (a *API) validMoves(w http.ResponseWriter, r *http.Request) {
	row, rowErr := strconv.Atoi(r.URL.Query().Get("row"))
	col, colErr := strconv.Atoi(r.URL.Query().Get("col"))
	if rowErr != nil || colErr != nil {
		writeError(w, invalidf("row and col query parameters are required"))
		return
	}
	moves, err := a.engine.ValidMoves(chi.URLParam(r, "gameID"), playerFromRequest(r), board.Pos(row, col))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ValidMovesResponse{Moves: moves})
}

// playerFromRequest reads the player id from the header, falling back to the
// query string for clients that cannot set headers (browser WebSockets).
func playerFromRequest(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(PlayerHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("player_id"))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeError(w, invalidf("malformed body: %v", err))
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, err error) {
	code := httpStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, code, errorBody{Error: msg, Code: errorReason(err)})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// requestLogger logs each request through zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
