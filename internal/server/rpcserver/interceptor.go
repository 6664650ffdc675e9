package rpcserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/tssd/internal/core/domain"
	"github.com/yndnr/tssd/internal/telemetry/logger"
	"github.com/yndnr/tssd/internal/telemetry/metric"
)

// RequestIDInterceptor assigns each call a request id, taken from the
// X-Request-ID header when the caller sent one.
type RequestIDInterceptor struct{}

// WrapUnary implements connect.Interceptor.
func (RequestIDInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		id := req.Header().Get(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = ulid.Make().String()
		}
		ctx = logger.WithRequestID(ctx, id)

		resp, err := next(ctx, req)
		if resp != nil {
			resp.Header().Set(HeaderRequestID, id)
		}
		var ce *connect.Error
		if errors.As(err, &ce) {
			ce.Meta().Set(HeaderRequestID, id)
		}
		return resp, err
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (RequestIDInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (RequestIDInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// LoggingInterceptor logs all RPC requests and responses.
type LoggingInterceptor struct {
	logger *slog.Logger
}

// NewLoggingInterceptor creates a new logging interceptor.
func NewLoggingInterceptor(logger *slog.Logger) *LoggingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingInterceptor{logger: logger}
}

// WrapUnary implements connect.Interceptor.
func (i *LoggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		log := i.logger.With(
			"request_id", logger.RequestIDFromContext(ctx),
			"method", req.Spec().Procedure,
			"peer", req.Peer().Addr)

		log.Debug("rpc request")
		resp, err := next(ctx, req)

		duration := time.Since(start)
		switch code := connect.CodeOf(err); {
		case err == nil:
			log.Info("rpc response", "duration_ms", duration.Milliseconds())
		case code == connect.CodeInternal || code == connect.CodeUnknown:
			log.Error("rpc error", "code", code.String(), "duration_ms", duration.Milliseconds(), "error", err)
		default:
			log.Warn("rpc rejected", "code", code.String(), "duration_ms", duration.Milliseconds(), "error", err)
		}
		return resp, err
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *LoggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *LoggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// MetricsInterceptor records per-procedure request counts and latency.
type MetricsInterceptor struct {
	metrics *metric.Registry
}

// NewMetricsInterceptor creates a metrics interceptor. A nil registry
// records into metric.Global().
func NewMetricsInterceptor(m *metric.Registry) *MetricsInterceptor {
	if m == nil {
		m = metric.Global()
	}
	return &MetricsInterceptor{metrics: m}
}

// WrapUnary implements connect.Interceptor.
func (i *MetricsInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		resp, err := next(ctx, req)

		code := "ok"
		if err != nil {
			code = connect.CodeOf(err).String()
		}
		i.metrics.ObserveRequest(req.Spec().Procedure, code, time.Since(start))
		return resp, err
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *MetricsInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *MetricsInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// RateLimitInterceptor applies a process-wide token bucket to unary calls.
type RateLimitInterceptor struct {
	limiter *rate.Limiter
	metrics *metric.Registry
}

// NewRateLimitInterceptor allows rps calls per second with the given burst.
func NewRateLimitInterceptor(rps float64, burst int, m *metric.Registry) *RateLimitInterceptor {
	if burst < 1 {
		burst = 1
	}
	if m == nil {
		m = metric.Global()
	}
	return &RateLimitInterceptor{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		metrics: m,
	}
}

// WrapUnary implements connect.Interceptor.
func (i *RateLimitInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if !i.limiter.Allow() {
			i.metrics.RateLimited.Inc()
			return nil, toConnectError(domain.ErrRateLimited)
		}
		return next(ctx, req)
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *RateLimitInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *RateLimitInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// RecoveryInterceptor recovers from panics.
type RecoveryInterceptor struct {
	logger *slog.Logger
}

// NewRecoveryInterceptor creates a new recovery interceptor.
func NewRecoveryInterceptor(logger *slog.Logger) *RecoveryInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryInterceptor{logger: logger}
}

// WrapUnary implements connect.Interceptor.
func (i *RecoveryInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
		defer func() {
			if r := recover(); r != nil {
				i.logger.Error("rpc panic recovered",
					"method", req.Spec().Procedure,
					"panic", fmt.Sprint(r))
				err = toConnectError(domain.ErrInternal.WithDetails("panic recovered"))
			}
		}()
		return next(ctx, req)
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *RecoveryInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *RecoveryInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// DefaultInterceptors returns the server interceptor chain, outermost first.
// Rate limiting is skipped when rps is zero.
func DefaultInterceptors(logger *slog.Logger, m *metric.Registry, rps float64, burst int) []connect.Interceptor {
	chain := []connect.Interceptor{
		NewRecoveryInterceptor(logger),
		RequestIDInterceptor{},
		NewMetricsInterceptor(m),
		NewLoggingInterceptor(logger),
	}
	if rps > 0 {
		chain = append(chain, NewRateLimitInterceptor(rps, burst, m))
	}
	return chain
}
