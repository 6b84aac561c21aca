package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Decision is an authenticator's vote on a request. The zero value is
// Denied so a misconfigured chain fails closed.
type Decision int

const (
	// Denied means credentials were presented and rejected. The chain
	// stops and the request is refused.
	Denied Decision = iota

	// Granted means credentials were verified. The chain stops and the
	// identity scopes the rest of the request.
	Granted

	// Abstained means the request carries no credentials this
	// authenticator understands. The chain moves on.
	Abstained
)

// Identity describes an authenticated caller of the orchestration
// server.
type Identity struct {
	// Subject is the caller's unique identifier. Never empty on a
	// granted result.
	Subject string

	// Tenant partitions the conversation store. Callers with different
	// tenants never see each other's conversations; an empty tenant
	// reads unscoped.
	Tenant string

	// Tier names the caller's rate limit budget.
	Tier string

	// Scopes lists granted authorization scopes.
	Scopes []string
}

// Result is the outcome of one authentication attempt. Identity is set
// only on Granted, Err only on Denied.
type Result struct {
	Decision Decision
	Identity *Identity
	Err      error
}

// Authenticator inspects a request's credentials and votes.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// Chain runs authenticators in order until one grants or denies. When
// every authenticator abstains the Fallback decision applies; the zero
// value denies, so anonymous access has to be opted into.
type Chain struct {
	Authenticators []Authenticator
	Fallback       Decision
}

// Authenticate evaluates the chain for one request.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, a := range c.Authenticators {
		if result := a.Authenticate(ctx, r); result.Decision != Abstained {
			return result
		}
	}

	if c.Fallback == Granted {
		return Result{Decision: Granted, Identity: anonymousIdentity()}
	}
	return Result{Decision: Denied, Err: ErrUnauthenticated}
}

// Anonymous grants every request a shared anonymous identity. It backs
// deployments without configured credentials, where the server trusts
// its network boundary.
type Anonymous struct{}

func (Anonymous) Authenticate(_ context.Context, _ *http.Request) Result {
	return Result{Decision: Granted, Identity: anonymousIdentity()}
}

func anonymousIdentity() *Identity {
	return &Identity{Subject: "anonymous", Tier: "default"}
}

// BearerToken extracts the token from an Authorization: Bearer header.
// ok is false when the header is absent or carries another scheme,
// which token authenticators treat as an abstention.
func BearerToken(r *http.Request) (token string, ok bool) {
	scheme, rest, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// identityKey keys the request identity in a context.
type identityKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity, or nil for
// an unauthenticated context.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
