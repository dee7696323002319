// Package provider defines the interface for LLM inference backends.
// Each adapter implementation (e.g., cloudcode) handles its own backend
// protocol translation internally. The interface operates on the Claude
// dialect types from pkg/api, keeping backend protocol details invisible
// to the engine.
package provider
