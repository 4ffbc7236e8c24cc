// Package gameserver exposes the combat engine as the samsara.v1.Arena gRPC
// service. Requests and responses are google.protobuf.Struct messages, so the
// service is described by hand instead of from generated stubs.
package gameserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/samsara/internal/game/combat"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "samsara.v1.Arena"

// ArenaServer is the server API for the Arena service.
type ArenaServer interface {
	CreateCharacter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCharacter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartEncounter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Describe(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Rebirth(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Rest(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(ArenaServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ArenaServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(ArenaServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ArenaServiceDesc describes the Arena service for grpc.Server.RegisterService.
var ArenaServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ArenaServer)(nil),
	Methods: []grpc.MethodDesc{
		method("CreateCharacter", ArenaServer.CreateCharacter),
		method("GetCharacter", ArenaServer.GetCharacter),
		method("StartEncounter", ArenaServer.StartEncounter),
		method("SubmitAction", ArenaServer.SubmitAction),
		method("Describe", ArenaServer.Describe),
		method("Rebirth", ArenaServer.Rebirth),
		method("Rest", ArenaServer.Rest),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "samsara/v1/arena.proto",
}

// RegisterArenaServer registers srv on s.
func RegisterArenaServer(s grpc.ServiceRegistrar, srv ArenaServer) {
	s.RegisterService(&ArenaServiceDesc, srv)
}

var _ ArenaServer = (*ArenaService)(nil)

// ArenaService implements ArenaServer on a combat.Engine.
type ArenaService struct {
	engine *combat.Engine
	logger *zap.Logger
}

// NewArenaService creates an ArenaService.
//
// Precondition: engine and logger must be non-nil.
func NewArenaService(engine *combat.Engine, logger *zap.Logger) *ArenaService {
	return &ArenaService{engine: engine, logger: logger}
}

// CreateCharacter handles {player_id, class_id} and returns the new record.
func (s *ArenaService) CreateCharacter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(in)
	id, err := f.required("player_id")
	if err != nil {
		return nil, toStatus(err)
	}
	classID, err := f.required("class_id")
	if err != nil {
		return nil, toStatus(err)
	}
	c, err := s.engine.CreateCharacter(ctx, id, classID)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(characterMap(c))
}

// GetCharacter handles {player_id}.
func (s *ArenaService) GetCharacter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := fieldsOf(in).required("player_id")
	if err != nil {
		return nil, toStatus(err)
	}
	c, err := s.engine.GetCharacter(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(characterMap(c))
}

// StartEncounter handles {player_id, location_id} and returns the opening view.
func (s *ArenaService) StartEncounter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(in)
	id, err := f.required("player_id")
	if err != nil {
		return nil, toStatus(err)
	}
	loc, err := f.required("location_id")
	if err != nil {
		return nil, toStatus(err)
	}
	v, err := s.engine.StartEncounter(ctx, id, loc)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(viewMap(v))
}

// SubmitAction handles {handle, actor_id, kind, ref} and returns
// {view, outcome?}; outcome is present once the encounter has ended.
func (s *ArenaService) SubmitAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(in)
	handle, err := f.required("handle")
	if err != nil {
		return nil, toStatus(err)
	}
	actor, err := f.required("actor_id")
	if err != nil {
		return nil, toStatus(err)
	}
	a, err := actionFromFields(f)
	if err != nil {
		return nil, toStatus(err)
	}
	res, err := s.engine.SubmitAction(ctx, handle, actor, a)
	if err != nil {
		return nil, toStatus(err)
	}
	out := map[string]any{"view": viewMap(res.View)}
	if o := res.Outcome; o != nil {
		out["outcome"] = outcomeMap(o)
		s.logger.Info("encounter finished",
			zap.String("player_id", actor),
			zap.String("state", o.State.String()),
			zap.Int("waves_cleared", o.WavesCleared),
			zap.Bool("persisted", o.Persisted),
		)
	}
	return newStruct(out)
}

// Describe handles {handle, actor_id}.
func (s *ArenaService) Describe(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := fieldsOf(in)
	handle, err := f.required("handle")
	if err != nil {
		return nil, toStatus(err)
	}
	actor, err := f.required("actor_id")
	if err != nil {
		return nil, toStatus(err)
	}
	v, err := s.engine.Describe(handle, actor)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(viewMap(v))
}

// Rebirth handles {player_id}.
func (s *ArenaService) Rebirth(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := fieldsOf(in).required("player_id")
	if err != nil {
		return nil, toStatus(err)
	}
	c, err := s.engine.Rebirth(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(characterMap(c))
}

// Rest handles {player_id}.
func (s *ArenaService) Rest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := fieldsOf(in).required("player_id")
	if err != nil {
		return nil, toStatus(err)
	}
	c, err := s.engine.Rest(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(characterMap(c))
}

// LoggingInterceptor logs every unary call with its status code and latency.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		logFields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			logger.Info("rpc rejected", append(logFields, zap.Error(err))...)
		} else {
			logger.Debug("rpc", logFields...)
		}
		return resp, err
	}
}
