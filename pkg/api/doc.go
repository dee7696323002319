// Package api defines the core protocol types for the dolmetsch gateway.
//
// This package provides all data types for the Claude "messages" wire
// dialect, which is the canonical internal representation of the gateway:
// requests, content blocks, streaming events, usage accounting, error
// types, and ID generation. The OpenAI-facing dialect (pkg/openai) and
// the backend dialect (pkg/provider/cloudcode) both convert to and from
// these types.
//
// The package has zero external dependencies (Go standard library only)
// and performs no I/O. All types produce JSON compatible with the
// Anthropic Messages API wire format, enabling client library
// compatibility.
//
// Core types:
//   - [MessagesRequest]: Client request for model inference
//   - [MessagesResponse]: Complete model response with content blocks
//   - [ContentBlock]: Polymorphic unit of content (text, tool_use, tool_result)
//   - [StreamEvent]: Server-sent event for streaming responses
//   - [Usage]: Token accounting pair with monotonic merge semantics
//   - [APIError]: Structured error with type, message, and optional param
package api
