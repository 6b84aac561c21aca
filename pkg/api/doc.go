// Package api defines the core domain types for the ensemble orchestration
// server: orchestration requests and results, strategy identifiers,
// conversation messages, the structured error taxonomy, and ID generation.
//
// The package has no dependencies on other ensemble packages so that
// provider, storage, engine, and transport can all share it freely.
package api
