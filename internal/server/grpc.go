package server

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/stratego-online/stratego-server-go/internal/ai"
	"github.com/stratego-online/stratego-server-go/internal/game"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// strategoServer implements StrategoServiceServer on top of the engine
type strategoServer struct {
	engine        *game.Engine
	watchers      *Broadcaster
	logger        *zap.Logger
	serverVersion string
	startedAt     time.Time
}

// NewStrategoServer creates the gRPC game service. Watch streams are fed by
// watchers, which must be wired to the engine's notification handler.
func NewStrategoServer(engine *game.Engine, watchers *Broadcaster, serverVersion string, logger *zap.Logger) StrategoServiceServer {
	return &strategoServer{
		engine:        engine,
		watchers:      watchers,
		logger:        logger,
		serverVersion: serverVersion,
		startedAt:     time.Now(),
	}
}

// ==================== Lobby ====================

// CreateGame opens a game with the caller in the Red seat.
func (s *strategoServer) CreateGame(ctx context.Context, req *CreateGameRequest) (*GameSummaryResponse, error) {
	summary, err := s.engine.CreateGame(strings.TrimSpace(req.PlayerID), game.GameOptions{
		VsAI:       req.VsAI,
		Difficulty: ai.Difficulty(req.Difficulty),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &GameSummaryResponse{Game: summary}, nil
}

// JoinGame takes the Blue seat of a waiting game.
func (s *strategoServer) JoinGame(ctx context.Context, req *GameRequest) (*GameSummaryResponse, error) {
	if err := req.validate(); err != nil {
		return nil, toStatus(err)
	}
	summary, err := s.engine.JoinGame(req.GameID, strings.TrimSpace(req.PlayerID))
	if err != nil {
		return nil, toStatus(err)
	}
	return &GameSummaryResponse{Game: summary}, nil
}

// ListOpenGames returns games waiting for an opponent.
func (s *strategoServer) ListOpenGames(ctx context.Context, req *ListGamesRequest) (*ListGamesResponse, error) {
	return &ListGamesResponse{Games: s.engine.ListOpenGames()}, nil
}

// ListPlayerGames returns the caller's games.
func (s *strategoServer) ListPlayerGames(ctx context.Context, req *ListGamesRequest) (*ListGamesResponse, error) {
	playerID := strings.TrimSpace(req.PlayerID)
	if playerID == "" {
		return nil, toStatus(game.ErrInvalidPlayer)
	}
	return &ListGamesResponse{Games: s.engine.ListGamesForPlayer(playerID)}, nil
}

// ==================== Game Play ====================

// SubmitSetup places the caller's pieces.
func (s *strategoServer) SubmitSetup(ctx context.Context, req *SubmitSetupRequest) (*GameViewResponse, error) {
	if strings.TrimSpace(req.GameID) == "" {
		return nil, toStatus(invalidf("game_id is required"))
	}
	view, err := s.engine.SubmitSetup(req.GameID, req.PlayerID, req.Placements)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GameViewResponse{View: view}, nil
}

// MakeMove moves one of the caller's pieces.
func (s *strategoServer) MakeMove(ctx context.Context, req *MakeMoveRequest) (*MakeMoveResponse, error) {
	if strings.TrimSpace(req.GameID) == "" {
		return nil, toStatus(invalidf("game_id is required"))
	}
	outcome, err := s.engine.MakeMove(req.GameID, req.PlayerID, req.From, req.To)
	if err != nil {
		return nil, toStatus(err)
	}
	return &MakeMoveResponse{Outcome: outcome}, nil
}

// Forfeit abandons the game on the caller's behalf.
func (s *strategoServer) Forfeit(ctx context.Context, req *GameRequest) (*GameSummaryResponse, error) {
	if err := req.validate(); err != nil {
		return nil, toStatus(err)
	}
	summary, err := s.engine.Forfeit(req.GameID, req.PlayerID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GameSummaryResponse{Game: summary}, nil
}

// GetGameView returns the caller's view of the game.
func (s *strategoServer) GetGameView(ctx context.Context, req *GameRequest) (*GameViewResponse, error) {
	if err := req.validate(); err != nil {
		return nil, toStatus(err)
	}
	view, err := s.engine.GetGameView(req.GameID, req.PlayerID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GameViewResponse{View: view}, nil
}

// GetValidMoves lists the legal destinations of one of the caller's pieces.
func (s *strategoServer) GetValidMoves(ctx context.Context, req *ValidMovesRequest) (*ValidMovesResponse, error) {
	if strings.TrimSpace(req.GameID) == "" {
		return nil, toStatus(invalidf("game_id is required"))
	}
	moves, err := s.engine.ValidMoves(req.GameID, req.PlayerID, req.From)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ValidMovesResponse{Moves: moves}, nil
}

// GetMoveHistory returns the move log as the caller may see it.
func (s *strategoServer) GetMoveHistory(ctx context.Context, req *GameRequest) (*MoveHistoryResponse, error) {
	if err := req.validate(); err != nil {
		return nil, toStatus(err)
	}
	moves, err := s.engine.MoveHistory(req.GameID, req.PlayerID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &MoveHistoryResponse{Moves: moves}, nil
}

// WatchGame streams the caller's view after every change until the game ends
// or the client goes away.
func (s *strategoServer) WatchGame(req *GameRequest, stream grpc.ServerStream) error {
	if err := req.validate(); err != nil {
		return toStatus(err)
	}
	if s.watchers == nil {
		return status.Error(codes.Unavailable, "game watching is not enabled")
	}

	// Subscribe before the first view so no change slips between the two.
	updates, cancel := s.watchers.Subscribe(req.GameID)
	defer cancel()

	view, err := s.engine.GetGameView(req.GameID, req.PlayerID)
	if err != nil {
		return toStatus(err)
	}
	if err := stream.SendMsg(&GameUpdate{Event: "SNAPSHOT", Version: view.Version, View: view}); err != nil {
		return err
	}
	if view.Phase.Terminal() {
		return nil
	}

	s.logger.Debug("watch started",
		zap.String("game_id", req.GameID),
		zap.String("player_id", req.PlayerID),
	)

	lastVersion := view.Version
	for {
		select {
		case <-stream.Context().Done():
			return nil
		case n, ok := <-updates:
			if !ok {
				return nil
			}
			if n.Version <= lastVersion {
				continue
			}
			view, err := s.engine.GetGameView(req.GameID, req.PlayerID)
			if err != nil {
				return toStatus(err)
			}
			lastVersion = view.Version
			if err := stream.SendMsg(&GameUpdate{Event: n.Type, Version: view.Version, View: view}); err != nil {
				return err
			}
			if view.Phase.Terminal() {
				return nil
			}
		}
	}
}

// ==================== Server ====================

// Ping reports the server time.
func (s *strategoServer) Ping(ctx context.Context, req *PingRequest) (*PingResponse, error) {
	return &PingResponse{ServerTime: timestamppb.Now()}, nil
}

// GetServerState reports uptime and load.
func (s *strategoServer) GetServerState(ctx context.Context, req *ServerStateRequest) (*ServerStateResponse, error) {
	return &ServerStateResponse{
		ServerVersion: s.serverVersion,
		StartedAt:     timestamppb.New(s.startedAt),
		Uptime:        durationpb.New(time.Since(s.startedAt)),
		ActiveGames:   s.engine.GameCount(),
		Goroutines:    runtime.NumGoroutine(),
	}, nil
}
