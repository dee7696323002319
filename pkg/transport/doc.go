// Package transport defines the handler contract and middleware chain for
// the dolmetsch HTTP/SSE transport layer.
//
// The transport layer bridges external clients and the translation engine.
// It deserializes incoming requests into the canonical messages types from
// pkg/api, dispatches them for processing, and serializes results back to
// the client as JSON or as an SSE event stream.
//
// # Handler Contract
//
// MessageCreator is the single handler interface: it receives a canonical
// request and writes the result through a ResponseWriter. The
// ResponseWriter abstracts streaming and non-streaming output, so the
// engine emits events or a complete message without knowing the wire
// dialect or the transport protocol.
//
// # Middleware
//
// The middleware chain wraps MessageCreator with cross-cutting concerns:
// panic recovery, request ID assignment (X-Request-ID), and structured
// logging via log/slog. The dialect of the client surface rides the
// context so logging and usage accounting can label requests without
// threading extra parameters through the engine.
package transport
