// Package jwt provides a JWT authenticator that validates HMAC-signed
// bearer tokens against a shared secret, with configurable issuer,
// audience, and claim extraction for subject, tenant, and scopes.
package jwt

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/ensembled/ensemble/pkg/auth"
)

// Config holds the JWT authenticator configuration.
type Config struct {
	// Secret is the shared HMAC signing secret (required).
	Secret string

	// Issuer is the expected JWT issuer (iss claim). If empty, issuer is not validated.
	Issuer string

	// Audience is the expected JWT audience (aud claim). If empty, audience is not validated.
	Audience string

	// UserClaim is the JWT claim used as the identity subject. Default: "sub".
	UserClaim string

	// TenantClaim is the JWT claim used for conversation store scoping. Default: "tenant_id".
	TenantClaim string

	// TierClaim is the JWT claim used for the service tier. Default: "tier".
	TierClaim string

	// ScopesClaim is the JWT claim used for authorization scopes. Default: "scope".
	// The value can be a space-separated string or a JSON array.
	ScopesClaim string
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.UserClaim == "" {
		c.UserClaim = "sub"
	}
	if c.TenantClaim == "" {
		c.TenantClaim = "tenant_id"
	}
	if c.TierClaim == "" {
		c.TierClaim = "tier"
	}
	if c.ScopesClaim == "" {
		c.ScopesClaim = "scope"
	}
}

// Authenticator validates HMAC-signed JWT bearer tokens.
type Authenticator struct {
	config Config
	secret []byte
}

// New creates a JWT authenticator with the given configuration.
func New(cfg Config) *Authenticator {
	cfg.applyDefaults()
	return &Authenticator{
		config: cfg,
		secret: []byte(cfg.Secret),
	}
}

// Authenticate validates the request's bearer token as an HMAC-signed
// JWT: Abstained without a bearer token, Denied when the token is
// present but invalid (bad signature, expired, wrong issuer or
// audience, missing subject), Granted with the identity built from the
// configured claims.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	tokenStr, ok := auth.BearerToken(r)
	if !ok {
		return auth.Result{Decision: auth.Abstained}
	}
	if tokenStr == "" {
		return auth.Result{
			Decision: auth.Denied,
			Err:      fmt.Errorf("empty bearer token"),
		}
	}

	token, err := jwtlib.Parse(tokenStr, func(token *jwtlib.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, a.parserOptions()...)
	if err != nil {
		slog.Debug("JWT validation failed", "error", err)
		return auth.Result{
			Decision: auth.Denied,
			Err:      fmt.Errorf("invalid JWT: %w", err),
		}
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return auth.Result{
			Decision: auth.Denied,
			Err:      fmt.Errorf("invalid JWT claims"),
		}
	}

	subject := claimString(claims, a.config.UserClaim)
	if subject == "" {
		return auth.Result{
			Decision: auth.Denied,
			Err:      fmt.Errorf("JWT missing %q claim", a.config.UserClaim),
		}
	}

	return auth.Result{
		Decision: auth.Granted,
		Identity: &auth.Identity{
			Subject: subject,
			Tenant:  claimString(claims, a.config.TenantClaim),
			Tier:    claimString(claims, a.config.TierClaim),
			Scopes:  extractScopes(claims, a.config.ScopesClaim),
		},
	}
}

// parserOptions builds JWT parser options based on the configuration.
func (a *Authenticator) parserOptions() []jwtlib.ParserOption {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
	}

	if a.config.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(a.config.Issuer))
	}

	if a.config.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(a.config.Audience))
	}

	return opts
}

// claimString extracts a string value from JWT claims.
// Returns empty string if the claim is missing or not a string.
func claimString(claims jwtlib.MapClaims, key string) string {
	val, ok := claims[key]
	if !ok {
		return ""
	}
	s, ok := val.(string)
	if !ok {
		return ""
	}
	return s
}

// extractScopes extracts scopes from JWT claims.
// The scope claim can be either a space-separated string or a JSON array.
func extractScopes(claims jwtlib.MapClaims, key string) []string {
	val, ok := claims[key]
	if !ok {
		return nil
	}

	// Case 1: space-separated string (e.g., "read write admin")
	if s, ok := val.(string); ok {
		parts := strings.Fields(s)
		if len(parts) == 0 {
			return nil
		}
		return parts
	}

	// Case 2: JSON array (e.g., ["read", "write", "admin"])
	if arr, ok := val.([]interface{}); ok {
		var scopes []string
		for _, item := range arr {
			if s, ok := item.(string); ok {
				scopes = append(scopes, s)
			}
		}
		if len(scopes) == 0 {
			return nil
		}
		return scopes
	}

	return nil
}
