package transport

import "context"

// Middleware wraps a MessageCreator to add cross-cutting behavior.
// Middleware is applied in order: the first middleware in the chain is
// the outermost wrapper (executes first on the way in, last on the way out).
type Middleware func(MessageCreator) MessageCreator

// Chain composes multiple middleware into a single middleware.
// Middleware are applied in order: Chain(a, b, c) produces a(b(c(handler))).
func Chain(middlewares ...Middleware) Middleware {
	return func(next MessageCreator) MessageCreator {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// requestIDKeyType is the context key type for request IDs.
type requestIDKeyType struct{}

var requestIDKey = requestIDKeyType{}

// RequestIDFromContext extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// dialectKeyType is the context key type for the client dialect.
type dialectKeyType struct{}

var dialectKey = dialectKeyType{}

// Dialect names for the client-facing surfaces.
const (
	DialectClaude = "claude"
	DialectOpenAI = "openai"
)

// DialectFromContext extracts the client dialect from the context.
// Returns an empty string if no dialect is set.
func DialectFromContext(ctx context.Context) string {
	if d, ok := ctx.Value(dialectKey).(string); ok {
		return d
	}
	return ""
}

// ContextWithDialect returns a new context annotated with the client
// dialect. Set by the HTTP adapter before the middleware chain runs.
func ContextWithDialect(ctx context.Context, dialect string) context.Context {
	return context.WithValue(ctx, dialectKey, dialect)
}
