// Package storage defines the conversation context store contract and
// utilities shared across store implementations: message and summary
// types, sentinel errors, and tenant context helpers.
//
// Implementations live in subpackages: memory (tests and lightweight
// deployments), postgres (durable), and cached (a read-through history
// cache decorating any Store).
package storage
