package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/domain"
	"authgate/internal/middleware"
)

type stubIdentityProvider struct {
	ident *domain.AccountIdentity
	err   error
}

func (p *stubIdentityProvider) Resolve(context.Context, string) (*domain.AccountIdentity, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.ident, nil
}

type stubGroupResolver struct {
	groups []domain.Group
	err    error
}

func (r *stubGroupResolver) GroupsFor(context.Context, string) ([]domain.Group, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.groups, nil
}

func testPipelineLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// pipelineFixture assembles a handler in front of a capturing backend, with
// the request id middleware applied the way the server composes it.
type pipelineFixture struct {
	handler     http.Handler
	backendHdrs *http.Header
	registry    *Registry
}

func newPipeline(t *testing.T, identities domain.IdentityProvider, groups domain.GroupResolver, allowAnonymous bool) *pipelineFixture {
	t.Helper()

	var captured http.Header
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("backend-ok"))
	}))
	t.Cleanup(backend.Close)

	registry, err := LoadRegistry("", []string{"BACKEND_SVC1=" + backend.URL})
	require.NoError(t, err)

	h := NewHandler(identities, groups, NewEnricher("s3cret"), registry, NewProxy(backend.Client()), allowAnonymous, testPipelineLogger())
	return &pipelineFixture{
		handler:     middleware.RequestID(h),
		backendHdrs: &captured,
		registry:    registry,
	}
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload["message"]
}

func TestHandler_AuthenticatedRequestIsEnrichedAndForwarded(t *testing.T) {
	identities := &stubIdentityProvider{ident: testIdentity}
	groups := &stubGroupResolver{groups: []domain.Group{{Email: "eng@example.com", Description: "Engineering"}}}
	fx := newPipeline(t, identities, groups, false)

	req := httptest.NewRequest(http.MethodGet, "/svc1/things", nil)
	req.Header.Set("Authorization", "Bearer tok")
	req.Header.Set("X-Auth-User", "forged")

	w := httptest.NewRecorder()
	fx.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "backend-ok", w.Body.String())

	hdrs := *fx.backendHdrs
	assert.Equal(t, "108", hdrs.Get("X-Auth-User"))
	assert.Equal(t, "u@example.com", hdrs.Get("X-Auth-Email"))
	assert.Equal(t, "google", hdrs.Get("X-Auth-Provider"))
	assert.JSONEq(t, `[{"email":"eng@example.com","description":"Engineering"}]`, hdrs.Get("X-Auth-Groups"))
	assert.Equal(t, "s3cret", hdrs.Get("X-Shared-Secret"))
	assert.NotEmpty(t, hdrs.Get("X-Request-ID"))
}

func TestHandler_MissingCredential(t *testing.T) {
	fx := newPipeline(t, &stubIdentityProvider{ident: testIdentity}, &stubGroupResolver{}, false)

	req := httptest.NewRequest(http.MethodGet, "/svc1/things", nil)
	w := httptest.NewRecorder()
	fx.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "Authorization header not found.", errorMessage(t, w.Body.Bytes()))
}

func TestHandler_InvalidCredential(t *testing.T) {
	identities := &stubIdentityProvider{err: domain.ErrCredentialInvalid("Account not found / token invalid.")}
	fx := newPipeline(t, identities, &stubGroupResolver{}, false)

	req := httptest.NewRequest(http.MethodGet, "/svc1/things", nil)
	req.Header.Set("Authorization", "Bearer bad")
	w := httptest.NewRecorder()
	fx.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Account not found / token invalid.", errorMessage(t, w.Body.Bytes()))
}

func TestHandler_UnboundService(t *testing.T) {
	fx := newPipeline(t, &stubIdentityProvider{ident: testIdentity}, &stubGroupResolver{}, false)

	req := httptest.NewRequest(http.MethodGet, "/svcX/things", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	fx.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "svcX not bound service", errorMessage(t, w.Body.Bytes()))
}

func TestHandler_GroupFailureDegradesGracefully(t *testing.T) {
	identities := &stubIdentityProvider{ident: testIdentity}
	groups := &stubGroupResolver{err: domain.ErrUpstream("directory service", errors.New("503"))}
	fx := newPipeline(t, identities, groups, false)

	req := httptest.NewRequest(http.MethodGet, "/svc1/things", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	fx.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	hdrs := *fx.backendHdrs
	assert.Equal(t, "108", hdrs.Get("X-Auth-User"))
	_, present := hdrs["X-Auth-Groups"]
	assert.False(t, present)
}

func TestHandler_MemberOfNoGroupsSendsEmptyArray(t *testing.T) {
	// A verified empty membership is a non-nil empty slice and forwards as [].
	fx := newPipeline(t, &stubIdentityProvider{ident: testIdentity}, &stubGroupResolver{groups: []domain.Group{}}, false)

	req := httptest.NewRequest(http.MethodGet, "/svc1/things", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	fx.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", (*fx.backendHdrs).Get("X-Auth-Groups"))
}

func TestHandler_NoVerifiedGroupsOmitsHeader(t *testing.T) {
	// A nil group list means no membership claim was verified (directory
	// disabled); the header must be absent, not an empty array.
	fx := newPipeline(t, &stubIdentityProvider{ident: testIdentity}, &stubGroupResolver{}, false)

	req := httptest.NewRequest(http.MethodGet, "/svc1/things", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	fx.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	hdrs := *fx.backendHdrs
	assert.Equal(t, "108", hdrs.Get("X-Auth-User"))
	_, present := hdrs["X-Auth-Groups"]
	assert.False(t, present)
}

func TestHandler_AnonymousAllowed(t *testing.T) {
	fx := newPipeline(t, &stubIdentityProvider{ident: testIdentity}, &stubGroupResolver{}, true)

	req := httptest.NewRequest(http.MethodGet, "/svc1/things", nil)
	req.Header.Set("X-Auth-User", "forged")
	w := httptest.NewRecorder()
	fx.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	hdrs := *fx.backendHdrs
	assert.Empty(t, hdrs.Get("X-Auth-User"))
	assert.Empty(t, hdrs.Get("X-Auth-Groups"))
	assert.Equal(t, "s3cret", hdrs.Get("X-Shared-Secret"))
}

func TestHandler_IdentityUpstreamFailure(t *testing.T) {
	identities := &stubIdentityProvider{err: domain.ErrUpstream("identity provider", errors.New("connection refused"))}
	fx := newPipeline(t, identities, &stubGroupResolver{}, false)

	req := httptest.NewRequest(http.MethodGet, "/svc1/things", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	fx.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandler_BackendTransportFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	backend.Close() // refuse connections

	registry, err := LoadRegistry("", []string{"BACKEND_SVC1=" + backend.URL})
	require.NoError(t, err)

	h := NewHandler(&stubIdentityProvider{ident: testIdentity}, &stubGroupResolver{}, NewEnricher(""), registry, NewProxy(nil), false, testPipelineLogger())

	req := httptest.NewRequest(http.MethodGet, "/svc1/things", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, errorMessage(t, w.Body.Bytes()), "upstream backend")
}

func TestFirstPathSegment(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/svc1/things", "svc1"},
		{"/svc1", "svc1"},
		{"/", ""},
		{"", ""},
		{"/svc1/a/b/c", "svc1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, firstPathSegment(tt.path), tt.path)
	}
}
