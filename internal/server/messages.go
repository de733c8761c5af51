package server

import (
	"strings"

	"github.com/stratego-online/stratego-server-go/internal/game"
	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/rules"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Request and response messages shared by the gRPC service and the HTTP API.

type CreateGameRequest struct {
	PlayerID   string `json:"player_id"`
	VsAI       bool   `json:"vs_ai"`
	Difficulty string `json:"difficulty,omitempty"`
}

type GameRequest struct {
	PlayerID string `json:"player_id"`
	GameID   string `json:"game_id"`
}

type SubmitSetupRequest struct {
	PlayerID   string            `json:"player_id"`
	GameID     string            `json:"game_id"`
	Placements []board.Placement `json:"placements"`
}

type MakeMoveRequest struct {
	PlayerID string         `json:"player_id"`
	GameID   string         `json:"game_id"`
	From     board.Position `json:"from"`
	To       board.Position `json:"to"`
}

type ValidMovesRequest struct {
	PlayerID string         `json:"player_id"`
	GameID   string         `json:"game_id"`
	From     board.Position `json:"from"`
}

type ListGamesRequest struct {
	PlayerID string `json:"player_id,omitempty"`
}

type GameSummaryResponse struct {
	Game game.GameSummary `json:"game"`
}

type GameViewResponse struct {
	View *game.GameView `json:"view"`
}

type MakeMoveResponse struct {
	Outcome *game.MoveOutcome `json:"outcome"`
}

type ValidMovesResponse struct {
	Moves []rules.Move `json:"moves"`
}

type MoveHistoryResponse struct {
	Moves []game.VisibleMove `json:"moves"`
}

type ListGamesResponse struct {
	Games []game.GameSummary `json:"games"`
}

// GameUpdate is pushed to watchers whenever a game changes.
type GameUpdate struct {
	Event   string         `json:"event"`
	Version int64          `json:"version"`
	View    *game.GameView `json:"view"`
}

type PingRequest struct{}

type PingResponse struct {
	ServerTime *timestamppb.Timestamp `json:"server_time"`
}

type ServerStateRequest struct{}

type ServerStateResponse struct {
	ServerVersion string                 `json:"server_version"`
	StartedAt     *timestamppb.Timestamp `json:"started_at"`
	Uptime        *durationpb.Duration   `json:"uptime"`
	ActiveGames   int                    `json:"active_games"`
	Goroutines    int                    `json:"goroutines"`
}

func (r *GameRequest) validate() error {
	if strings.TrimSpace(r.GameID) == "" {
		return invalidf("game_id is required")
	}
	return nil
}
