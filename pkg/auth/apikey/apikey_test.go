package apikey

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ensembled/ensemble/pkg/auth"
)

func newKeyring() *Keyring {
	return New([]Key{
		{
			Token: "sk-valid-key",
			Identity: auth.Identity{
				Subject: "svc-a",
				Tenant:  "acme",
				Tier:    "pro",
			},
		},
		{
			Token:    "sk-other-key",
			Identity: auth.Identity{Subject: "svc-b"},
		},
	})
}

func requestWithAuth(header string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	return r
}

func TestAuthenticate_ValidKey(t *testing.T) {
	k := newKeyring()

	result := k.Authenticate(context.Background(), requestWithAuth("Bearer sk-valid-key"))
	if result.Decision != auth.Granted {
		t.Fatalf("decision = %v, want Granted", result.Decision)
	}
	if result.Identity.Subject != "svc-a" || result.Identity.Tier != "pro" {
		t.Errorf("identity = %+v", result.Identity)
	}
	if result.Identity.Tenant != "acme" {
		t.Errorf("tenant = %q, want acme", result.Identity.Tenant)
	}
}

func TestAuthenticate_UnknownKey(t *testing.T) {
	k := newKeyring()

	result := k.Authenticate(context.Background(), requestWithAuth("Bearer sk-wrong"))
	if result.Decision != auth.Denied {
		t.Errorf("decision = %v, want Denied", result.Decision)
	}
}

func TestAuthenticate_EmptyBearer(t *testing.T) {
	k := newKeyring()

	result := k.Authenticate(context.Background(), requestWithAuth("Bearer "))
	if result.Decision != auth.Denied {
		t.Errorf("decision = %v, want Denied", result.Decision)
	}
}

func TestAuthenticate_Abstains(t *testing.T) {
	k := newKeyring()

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := k.Authenticate(context.Background(), requestWithAuth(tt.header))
			if result.Decision != auth.Abstained {
				t.Errorf("decision = %v, want Abstained", result.Decision)
			}
		})
	}
}

func TestIdentityCopied(t *testing.T) {
	k := newKeyring()

	first := k.Authenticate(context.Background(), requestWithAuth("Bearer sk-valid-key"))
	first.Identity.Subject = "mutated"

	second := k.Authenticate(context.Background(), requestWithAuth("Bearer sk-valid-key"))
	if second.Identity.Subject != "svc-a" {
		t.Error("returned identities must not share state")
	}
}
