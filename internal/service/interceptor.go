package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Leganyst/reservation-platform/internal/identity"
)

// UserIDHeader — метаданные с id пользователя, проставляемые доверенным шлюзом.
const UserIDHeader = "x-user-id"

// TokenVerifier проверяет bearer-токен и возвращает claims.
type TokenVerifier interface {
	Verify(raw string) (*identity.Claims, error)
}

// IdentityInterceptor кладёт id вызывающего в контекст. Если передан
// verifier и в метаданных есть authorization, id берётся из токена, а
// невалидный токен отклоняется с Unauthenticated. Иначе используется
// x-user-id.
func IdentityInterceptor(verifier TokenVerifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)

		if verifier != nil {
			if raw := first(md, "authorization"); raw != "" {
				token, ok := strings.CutPrefix(raw, "Bearer ")
				if !ok {
					return nil, status.Error(codes.Unauthenticated, "authorization must be a bearer token")
				}
				claims, err := verifier.Verify(strings.TrimSpace(token))
				if err != nil {
					return nil, status.Error(codes.Unauthenticated, "invalid token")
				}
				return handler(identity.WithUser(ctx, claims.Subject), req)
			}
		}

		if userID := first(md, UserIDHeader); userID != "" {
			ctx = identity.WithUser(ctx, userID)
		}
		return handler(ctx, req)
	}
}

// LoggingInterceptor пишет по строке на вызов и открывает span.
func LoggingInterceptor(log logrus.FieldLogger) grpc.UnaryServerInterceptor {
	tracer := otel.Tracer("reservation/grpc")
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, span := tracer.Start(ctx, info.FullMethod, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		span.SetAttributes(attribute.String("rpc.grpc.status_code", code.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, code.String())
		}

		entry := log.WithFields(logrus.Fields{
			"method":   info.FullMethod,
			"code":     code.String(),
			"duration": time.Since(start).String(),
		})
		if userID, ok := identity.CurrentUserID(ctx); ok {
			entry = entry.WithField("user_id", userID)
		}
		switch code {
		case codes.OK:
			entry.Debug("grpc call")
		case codes.Internal, codes.Unknown:
			entry.WithError(err).Error("grpc call")
		default:
			entry.WithError(err).Info("grpc call")
		}
		return resp, err
	}
}

func first(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}
