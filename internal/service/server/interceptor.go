package server

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/common"
)

// withActor adds the calling actor and method to the context logger.
func withActor(ctx context.Context, method string) context.Context {
	ctx = logger.WithKV(ctx, "method", method)

	if actor, ok := common.ActorFromIncomingContext(ctx); ok {
		ctx = logger.WithKV(ctx, "actor", actor.String())
	}

	return ctx
}

func unaryActorInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	ctx = withActor(ctx, info.FullMethod)
	logger.Debug(ctx, "Request received")

	return handler(ctx, req)
}

func streamActorInterceptor(
	srv any,
	stream grpc.ServerStream,
	info *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	ctx := withActor(stream.Context(), info.FullMethod)
	logger.Info(ctx, "Stream opened")

	defer logger.Info(ctx, "Stream closed")

	return handler(srv, &loggedStream{ServerStream: stream, ctx: ctx})
}

// loggedStream replaces the stream context with one carrying the actor logger.
type loggedStream struct {
	grpc.ServerStream

	ctx context.Context //nolint:containedctx // Required by grpc.ServerStream.
}

func (s *loggedStream) Context() context.Context {
	return s.ctx
}
