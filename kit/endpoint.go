// CLAUDE:SUMMARY Transport-agnostic endpoint type, middleware chaining and the request logging middleware.
// CLAUDE:EXPORTS Endpoint, Middleware, Chain, Logging
// Package kit holds the small endpoint layer the MCP tools are built on: an
// Endpoint is a plain function, transports decode into it and middlewares
// wrap it.
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint handles one decoded request.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares; the first one is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs each call with its name, transport, request id and duration.
// Failures are logged at warn level.
func Logging(logger *slog.Logger, name string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"endpoint", name,
				"transport", GetTransport(ctx),
				"request_id", GetRequestID(ctx),
				"duration", time.Since(start),
			}
			if err != nil {
				logger.Warn("kit: call failed", append(attrs, "error", err)...)
				return resp, err
			}
			logger.Debug("kit: call", attrs...)
			return resp, nil
		}
	}
}
