package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"webguard/auth"
	"webguard/metrics"
)

// principalFromMetadata returns the principal carried by a Bearer token in
// the incoming metadata, or nil if there is none or it does not validate.
func principalFromMetadata(ctx context.Context, tokens *auth.TokenIssuer) *auth.Principal {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}
	values := md.Get("authorization") // Case-insensitive lookup
	if len(values) == 0 {
		return nil
	}
	parts := strings.Fields(values[0])
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil
	}
	p, err := tokens.Parse(parts[1])
	if err != nil {
		return nil
	}
	return p
}

// authorize applies policy to the full method name and returns the context
// to continue with.
func authorize(ctx context.Context, fullMethod string, policy *auth.Policy, tokens *auth.TokenIssuer) (context.Context, error) {
	principal := principalFromMetadata(ctx, tokens)
	decision := policy.Decide(fullMethod, principal)
	metrics.AccessDecisionsTotal.WithLabelValues(decision.String()).Inc()

	switch decision {
	case auth.Unauthenticated:
		return nil, status.Error(codes.Unauthenticated, "authorization token is not provided or invalid")
	case auth.Forbidden:
		return nil, status.Errorf(codes.PermissionDenied, "%s may not call %s", principal.Username, fullMethod)
	}
	if principal != nil {
		ctx = auth.WithPrincipal(ctx, principal)
	}
	return ctx, nil
}

// AuthInterceptor returns a unary server interceptor enforcing policy on
// full method names ("/package.Service/Method").
func AuthInterceptor(policy *auth.Policy, tokens *auth.TokenIssuer) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		newCtx, err := authorize(ctx, info.FullMethod, policy, tokens)
		if err != nil {
			return nil, err
		}
		return handler(newCtx, req)
	}
}

// StreamAuthInterceptor is the streaming counterpart of AuthInterceptor.
func StreamAuthInterceptor(policy *auth.Policy, tokens *auth.TokenIssuer) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		newCtx, err := authorize(ss.Context(), info.FullMethod, policy, tokens)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: newCtx})
	}
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }
