// Package cloudcode implements the provider backed by a CloudCode-style
// generate-content API. Requests travel in an envelope carrying the project,
// the resolved backend model, and a requestType discriminator; responses come
// back as candidates holding text and functionCall parts.
//
// The package splits into a pure translation core and a thin HTTP client. The
// core covers model alias resolution (MapModel), tool schema cleaning
// (CleanSchema), request translation (TranslateRequest), response translation
// (TranslateResponse), and incremental stream translation (StreamProcessor).
// None of the core functions touch the network, so they can be exercised
// directly in tests with captured wire payloads.
//
// The Client ties the core to the wire and satisfies provider.Provider.
package cloudcode
