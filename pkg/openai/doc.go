// Package openai implements the OpenAI-compatible chat-completions dialect
// spoken on the gateway's /v1/chat/completions surface.
//
// The package converts between this dialect and the canonical messages form:
// ToMessagesRequest and FromMessagesResponse cover the non-streaming path,
// and ChunkConverter re-emits a messages event stream as chat-completion
// chunks, one event at a time. Like the backend translation core, everything
// here is pure; SSE framing and transport belong to the HTTP layer.
package openai
