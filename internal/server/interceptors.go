package server

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AdminPasswordHeader is the metadata key carrying the admin password.
const AdminPasswordHeader = "x-admin-password"

// adminMethods are the RPCs that require the admin password.
var adminMethods = map[string]bool{
	FullMethod("ImportSnapshot"): true,
	FullMethod("RemoveGame"):     true,
}

// ChainUnaryInterceptors runs interceptors in order, the first outermost.
func ChainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		chained := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			next := chained
			ic := interceptors[i]
			chained = func(ctx context.Context, req any) (any, error) {
				return ic(ctx, req, info, next)
			}
		}
		return chained(ctx, req)
	}
}

// RecoveryInterceptor turns handler panics into codes.Internal.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs each call with its duration.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			logger.Warn("rpc failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("rpc", fields...)
		}
		return resp, err
	}
}

// AdminInterceptor guards admin RPCs with a bcrypt password hash. An empty
// hash disables them.
func AdminInterceptor(passwordHash string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !adminMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		if passwordHash == "" {
			return nil, status.Error(codes.PermissionDenied, "admin access disabled")
		}
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get(AdminPasswordHeader)
		if len(values) == 0 || values[0] == "" {
			return nil, status.Error(codes.Unauthenticated, "admin password required")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(values[0])); err != nil {
			return nil, status.Error(codes.PermissionDenied, "invalid admin password")
		}
		return handler(ctx, req)
	}
}
