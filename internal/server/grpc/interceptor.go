package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/userkeeper/internal/common"
	"github.com/dmitrijs2005/userkeeper/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// healthServicePrefix covers every method of grpc.health.v1.Health. Health
// checks are answered regardless of the credentials they carry.
const healthServicePrefix = "/grpc.health.v1.Health/"

// authorizationKey is the lower-cased metadata key gRPC uses for the
// Authorization header.
var authorizationKey = strings.ToLower(common.AuthorizationHeaderName)

// identityInterceptor verifies a bearer token when one is sent and stores the
// caller in the context. Calls without a token pass through anonymously; a
// token that fails verification is rejected. Health checks skip it.
func (s *GRPCServer) identityInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if strings.HasPrefix(info.FullMethod, healthServicePrefix) {
		return handler(ctx, req)
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return handler(ctx, req)
	}

	values := md.Get(authorizationKey)
	if len(values) == 0 {
		return handler(ctx, req)
	}

	scheme, token, found := strings.Cut(values[0], " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) || token == "" {
		return nil, status.Error(codes.Unauthenticated, common.ErrAuthenticationRequired.Error())
	}

	id, err := s.tokens.Verify(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, common.ErrAuthenticationRequired.Error())
	}

	return handler(auth.WithIdentity(ctx, id), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	s.logger.Debug(ctx, "rpc",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"latency", time.Since(start).String(),
	)
	return resp, err
}
