// Package engine implements the core orchestration logic for dolmetsch.
// The Engine struct implements transport.MessageCreator, bridging
// canonical create-message requests to the backend provider. It handles
// model defaulting, request validation, capability checks, streaming
// event forwarding, backend metrics, and best-effort usage recording.
package engine
