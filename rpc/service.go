// Package rpc exposes the oracle pipeline as the gRPC service
// oracle.v1.OracleSigner. Messages are protobuf well-known types, so no
// generated code is needed on either side.
package rpc

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/yitech/harbinger/oracle"
)

const serviceName = "oracle.v1.OracleSigner"

// Pipeline is the part of *oracle.Service the gRPC service needs.
type Pipeline interface {
	Oracle(ctx context.Context) (*oracle.Response, error)
	Revoke(ctx context.Context) (string, error)
	Info() oracle.Info
}

// OracleSignerServer is the server API for the OracleSigner service.
type OracleSignerServer interface {
	Oracle(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Revoke(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	Info(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// Register attaches p to s as the OracleSigner service.
func Register(s grpc.ServiceRegistrar, p Pipeline) {
	s.RegisterService(&serviceDesc, &server{pipeline: p})
}

type server struct {
	pipeline Pipeline
}

func (s *server) Oracle(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	resp, err := s.pipeline.Oracle(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return toStruct(resp)
}

func (s *server) Revoke(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	sig, err := s.pipeline.Revoke(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.String(sig), nil
}

func (s *server) Info(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.pipeline.Info())
}

// toStruct converts a JSON-tagged value to a Struct with the same shape as
// the HTTP response body.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(b); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// LoggingInterceptor logs every unary call with its duration and status code.
func LoggingInterceptor(log logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		entry := log.WithFields(logrus.Fields{
			"method": info.FullMethod,
			"code":   status.Code(err).String(),
		})
		if err != nil {
			entry.WithField("error", err).Error("grpc request failed")
		} else {
			entry.Info("grpc request")
		}
		return resp, err
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*OracleSignerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Oracle", Handler: oracleHandler},
		{MethodName: "Revoke", Handler: revokeHandler},
		{MethodName: "Info", Handler: infoHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "oracle/v1/oracle_signer.proto",
}

func oracleHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OracleSignerServer).Oracle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Oracle"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OracleSignerServer).Oracle(ctx, req.(*emptypb.Empty))
	})
}

func revokeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OracleSignerServer).Revoke(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Revoke"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OracleSignerServer).Revoke(ctx, req.(*emptypb.Empty))
	})
}

func infoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OracleSignerServer).Info(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Info"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OracleSignerServer).Info(ctx, req.(*emptypb.Empty))
	})
}
