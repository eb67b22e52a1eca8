// doc.go — Package documentation for foundational cross-cutting types.

// Package types holds the recording data model shared by every other
// package: Step, Bundle, Recording, and the FallbackChain that ties a
// Step to the locator strategies that may resolve it.
//
// Design Principle: Zero Dependencies
// This package imports only the Go standard library, so it is safe to
// import from any other package without creating circular imports.
//
// Architecture Layer: Foundation
//   Layer 1: types (zero deps) ← YOU ARE HERE
//   Layer 2: locator, vision, healing, telemetry, resilience, pagedriver
//   Layer 3: engine, conditional, recording, autowait, validate, dispatch
//   Layer 4: store, config, api, cmd/raengine
package types
