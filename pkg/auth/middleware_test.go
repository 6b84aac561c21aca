package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ensembled/ensemble/pkg/api"
	"github.com/ensembled/ensemble/pkg/storage"
)

// capture records the request that reached the inner handler.
type capture struct {
	called  bool
	request *http.Request
}

func (c *capture) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.request = r
		w.WriteHeader(http.StatusOK)
	})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var envelope api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	if envelope.Error == nil {
		t.Fatal("error envelope missing error body")
	}
	return envelope
}

func TestMiddleware_GrantedRequestPasses(t *testing.T) {
	chain := &Chain{Authenticators: []Authenticator{grant("svc")}}
	inner := &capture{}

	rec := httptest.NewRecorder()
	Middleware(chain, nil, nil)(inner.handler()).ServeHTTP(rec, testRequest())

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !inner.called {
		t.Fatal("inner handler not reached")
	}
	id := IdentityFrom(inner.request.Context())
	if id == nil || id.Subject != "svc" {
		t.Errorf("identity = %+v, want subject svc", id)
	}
}

func TestMiddleware_DeniedRequestGets401(t *testing.T) {
	chain := &Chain{Authenticators: []Authenticator{deny()}}
	inner := &capture{}

	rec := httptest.NewRecorder()
	Middleware(chain, nil, nil)(inner.handler()).ServeHTTP(rec, testRequest())

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if inner.called {
		t.Error("inner handler must not be reached")
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Error.Type != api.ErrorTypeInvalidRequest {
		t.Errorf("error type = %q, want %q", envelope.Error.Type, api.ErrorTypeInvalidRequest)
	}
	if envelope.Error.Param != "authorization" {
		t.Errorf("error param = %q, want authorization", envelope.Error.Param)
	}
}

func TestMiddleware_EmptySubjectGets500(t *testing.T) {
	bad := &voter{result: Result{Decision: Granted, Identity: &Identity{}}}
	chain := &Chain{Authenticators: []Authenticator{bad}}

	rec := httptest.NewRecorder()
	Middleware(chain, nil, nil)(http.NotFoundHandler()).ServeHTTP(rec, testRequest())

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Error.Type != api.ErrorTypeServerError {
		t.Errorf("error type = %q, want %q", envelope.Error.Type, api.ErrorTypeServerError)
	}
}

func TestMiddleware_RateLimited(t *testing.T) {
	id := &Identity{Subject: "svc", Tier: "free"}
	chain := &Chain{Authenticators: []Authenticator{
		&voter{result: Result{Decision: Granted, Identity: id}},
	}}
	limiter := NewTierLimiter(map[string]int{"free": 1}, 0)
	handler := Middleware(chain, limiter, nil)(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
	))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, testRequest())
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, testRequest())
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Error.Type != api.ErrorTypeTooManyRequests {
		t.Errorf("error type = %q, want %q", envelope.Error.Type, api.ErrorTypeTooManyRequests)
	}
}

func TestMiddleware_TenantScopesContext(t *testing.T) {
	id := &Identity{Subject: "svc", Tenant: "acme"}
	chain := &Chain{Authenticators: []Authenticator{
		&voter{result: Result{Decision: Granted, Identity: id}},
	}}
	inner := &capture{}

	rec := httptest.NewRecorder()
	Middleware(chain, nil, nil)(inner.handler()).ServeHTTP(rec, testRequest())

	if !inner.called {
		t.Fatal("inner handler not reached")
	}
	if tenant := storage.GetTenant(inner.request.Context()); tenant != "acme" {
		t.Errorf("tenant = %q, want acme", tenant)
	}
}

func TestMiddleware_NoTenantLeavesContextUnscoped(t *testing.T) {
	chain := &Chain{Authenticators: []Authenticator{grant("svc")}}
	inner := &capture{}

	rec := httptest.NewRecorder()
	Middleware(chain, nil, nil)(inner.handler()).ServeHTTP(rec, testRequest())

	if !inner.called {
		t.Fatal("inner handler not reached")
	}
	if tenant := storage.GetTenant(inner.request.Context()); tenant != "" {
		t.Errorf("tenant = %q, want empty", tenant)
	}
}

func TestMiddleware_BypassSkipsAuth(t *testing.T) {
	chain := &Chain{Authenticators: []Authenticator{deny()}}
	inner := &capture{}
	handler := Middleware(chain, nil, DefaultBypassEndpoints)(inner.handler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !inner.called {
		t.Error("bypass endpoint must reach the inner handler")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, testRequest())
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("non-bypass status = %d, want 401", rec.Code)
	}
}
