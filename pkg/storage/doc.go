// Package storage provides the shared types for usage accounting,
// including the UsageRecord model, sentinel errors, and tenant context
// helpers.
//
// Storage adapters (memory, postgres) implement the transport.UsageStore
// interface defined in pkg/transport/handler.go. This package contains
// only shared types and helpers, not the interface itself.
package storage
