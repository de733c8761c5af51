package server

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "stratego.v1.StrategoService"

// StrategoServiceServer is the server API for the game service.
type StrategoServiceServer interface {
	CreateGame(context.Context, *CreateGameRequest) (*GameSummaryResponse, error)
	JoinGame(context.Context, *GameRequest) (*GameSummaryResponse, error)
	SubmitSetup(context.Context, *SubmitSetupRequest) (*GameViewResponse, error)
	MakeMove(context.Context, *MakeMoveRequest) (*MakeMoveResponse, error)
	Forfeit(context.Context, *GameRequest) (*GameSummaryResponse, error)
	GetGameView(context.Context, *GameRequest) (*GameViewResponse, error)
	GetValidMoves(context.Context, *ValidMovesRequest) (*ValidMovesResponse, error)
	GetMoveHistory(context.Context, *GameRequest) (*MoveHistoryResponse, error)
	ListOpenGames(context.Context, *ListGamesRequest) (*ListGamesResponse, error)
	ListPlayerGames(context.Context, *ListGamesRequest) (*ListGamesResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	GetServerState(context.Context, *ServerStateRequest) (*ServerStateResponse, error)
	WatchGame(*GameRequest, grpc.ServerStream) error
}

// unaryMethod adapts a typed service method to a grpc.MethodDesc.
func unaryMethod[Req any, Resp any](name string, call func(StrategoServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StrategoServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(StrategoServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchGameHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(GameRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(StrategoServiceServer).WatchGame(in, stream)
}

// ServiceDesc describes the game service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StrategoServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateGame", StrategoServiceServer.CreateGame),
		unaryMethod("JoinGame", StrategoServiceServer.JoinGame),
		unaryMethod("SubmitSetup", StrategoServiceServer.SubmitSetup),
		unaryMethod("MakeMove", StrategoServiceServer.MakeMove),
		unaryMethod("Forfeit", StrategoServiceServer.Forfeit),
		unaryMethod("GetGameView", StrategoServiceServer.GetGameView),
		unaryMethod("GetValidMoves", StrategoServiceServer.GetValidMoves),
		unaryMethod("GetMoveHistory", StrategoServiceServer.GetMoveHistory),
		unaryMethod("ListOpenGames", StrategoServiceServer.ListOpenGames),
		unaryMethod("ListPlayerGames", StrategoServiceServer.ListPlayerGames),
		unaryMethod("Ping", StrategoServiceServer.Ping),
		unaryMethod("GetServerState", StrategoServiceServer.GetServerState),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchGame",
			Handler:       watchGameHandler,
			ServerStreams: true,
		},
	},
	Metadata: "stratego/v1/stratego.proto",
}

// RegisterStrategoServiceServer registers srv with s.
func RegisterStrategoServiceServer(s grpc.ServiceRegistrar, srv StrategoServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// StrategoClient is a typed client for the game service.
type StrategoClient struct {
	cc grpc.ClientConnInterface
}

// NewStrategoClient wraps a connection.
func NewStrategoClient(cc grpc.ClientConnInterface) *StrategoClient {
	return &StrategoClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StrategoClient) CreateGame(ctx context.Context, in *CreateGameRequest, opts ...grpc.CallOption) (*GameSummaryResponse, error) {
	return invoke[GameSummaryResponse](ctx, c.cc, "CreateGame", in, opts)
}

func (c *StrategoClient) JoinGame(ctx context.Context, in *GameRequest, opts ...grpc.CallOption) (*GameSummaryResponse, error) {
	return invoke[GameSummaryResponse](ctx, c.cc, "JoinGame", in, opts)
}

func (c *StrategoClient) SubmitSetup(ctx context.Context, in *SubmitSetupRequest, opts ...grpc.CallOption) (*GameViewResponse, error) {
	return invoke[GameViewResponse](ctx, c.cc, "SubmitSetup", in, opts)
}

func (c *StrategoClient) MakeMove(ctx context.Context, in *MakeMoveRequest, opts ...grpc.CallOption) (*MakeMoveResponse, error) {
	return invoke[MakeMoveResponse](ctx, c.cc, "MakeMove", in, opts)
}

func (c *StrategoClient) Forfeit(ctx context.Context, in *GameRequest, opts ...grpc.CallOption) (*GameSummaryResponse, error) {
	return invoke[GameSummaryResponse](ctx, c.cc, "Forfeit", in, opts)
}

func (c *StrategoClient) GetGameView(ctx context.Context, in *GameRequest, opts ...grpc.CallOption) (*GameViewResponse, error) {
	return invoke[GameViewResponse](ctx, c.cc, "GetGameView", in, opts)
}

func (c *StrategoClient) GetValidMoves(ctx context.Context, in *ValidMovesRequest, opts ...grpc.CallOption) (*ValidMovesResponse, error) {
	return invoke[ValidMovesResponse](ctx, c.cc, "GetValidMoves", in, opts)
}

func (c *StrategoClient) GetMoveHistory(ctx context.Context, in *GameRequest, opts ...grpc.CallOption) (*MoveHistoryResponse, error) {
	return invoke[MoveHistoryResponse](ctx, c.cc, "GetMoveHistory", in, opts)
}

func (c *StrategoClient) ListOpenGames(ctx context.Context, in *ListGamesRequest, opts ...grpc.CallOption) (*ListGamesResponse, error) {
	return invoke[ListGamesResponse](ctx, c.cc, "ListOpenGames", in, opts)
}

func (c *StrategoClient) ListPlayerGames(ctx context.Context, in *ListGamesRequest, opts ...grpc.CallOption) (*ListGamesResponse, error) {
	return invoke[ListGamesResponse](ctx, c.cc, "ListPlayerGames", in, opts)
}

func (c *StrategoClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, "Ping", in, opts)
}

func (c *StrategoClient) GetServerState(ctx context.Context, in *ServerStateRequest, opts ...grpc.CallOption) (*ServerStateResponse, error) {
	return invoke[ServerStateResponse](ctx, c.cc, "GetServerState", in, opts)
}

// WatchGame opens a stream of updates for one game.
func (c *StrategoClient) WatchGame(ctx context.Context, in *GameRequest, opts ...grpc.CallOption) (*GameWatchClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/WatchGame", opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &GameWatchClient{stream: stream}, nil
}

// GameWatchClient receives updates from WatchGame.
type GameWatchClient struct {
	stream grpc.ClientStream
}

// Recv blocks until the next update. It returns io.EOF once the game is over.
func (w *GameWatchClient) Recv() (*GameUpdate, error) {
	update := new(GameUpdate)
	if err := w.stream.RecvMsg(update); err != nil {
		return nil, err
	}
	return update, nil
}
