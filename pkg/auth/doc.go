// Package auth guards the HTTP MCP endpoint of the orchestration
// server.
//
// Authenticators vote Granted, Denied, or Abstained on each request; a
// Chain runs them in order and stops at the first non-abstention, with
// a fallback decision (deny unless configured otherwise) when every
// authenticator abstains. Granted identities carry the tenant that
// scopes the conversation store and the tier that selects a rate limit
// budget; the middleware threads both into the request context so the
// engine and the stores never see credentials, only identity.
package auth
