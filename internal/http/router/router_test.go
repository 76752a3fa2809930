package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachemem "github.com/oscarho2/giglink-identity/internal/cache/memory"
	authctrl "github.com/oscarho2/giglink-identity/internal/http/controllers/auth"
	healthctrl "github.com/oscarho2/giglink-identity/internal/http/controllers/health"
	"github.com/oscarho2/giglink-identity/internal/http/router"
	authsvc "github.com/oscarho2/giglink-identity/internal/http/services/auth"
	healthsvc "github.com/oscarho2/giglink-identity/internal/http/services/health"
	"github.com/oscarho2/giglink-identity/internal/identity"
	"github.com/oscarho2/giglink-identity/internal/identity/linktoken"
	"github.com/oscarho2/giglink-identity/internal/identity/provider"
	"github.com/oscarho2/giglink-identity/internal/identity/resolver"
	"github.com/oscarho2/giglink-identity/internal/rate"
	"github.com/oscarho2/giglink-identity/internal/security/password"
	"github.com/oscarho2/giglink-identity/internal/session"
	"github.com/oscarho2/giglink-identity/internal/store"
	"github.com/oscarho2/giglink-identity/internal/store/memory"
)

var secret = []byte("super-secret-de-test-0123456789ab")

type fakeVerifier struct {
	byToken map[string]identity.ExternalIdentity
}

func (f *fakeVerifier) Verify(_ context.Context, raw string) (*identity.ExternalIdentity, error) {
	id, ok := f.byToken[raw]
	if !ok {
		return nil, identity.ErrTokenVerificationFailed
	}
	return &id, nil
}

type env struct {
	handler  http.Handler
	repo     *memory.Repo
	sessions *session.Issuer
}

func newEnv(t *testing.T, tokens map[string]identity.ExternalIdentity, limiter rate.Limiter) *env {
	t.Helper()
	repo := memory.New()
	registry := provider.NewRegistry()
	registry.Register(identity.ProviderGoogle, &fakeVerifier{byToken: tokens})

	sessions := session.NewIssuer(secret, "giglink", time.Hour)
	links := linktoken.NewIssuer(secret, "giglink", 10*time.Minute)

	services := authsvc.NewServices(authsvc.Deps{
		Registry: registry,
		Resolver: resolver.New(repo, links),
		Sessions: sessions,
		LinkTTL:  10 * time.Minute,
		PublicConfig: map[identity.Provider]authsvc.ProviderPublicConfig{
			identity.ProviderGoogle: {Enabled: true, ClientIDs: []string{"client-web"}},
		},
	})

	h := router.New(router.Deps{
		Auth:        authctrl.NewControllers(services),
		Health:      healthctrl.NewHealthController(healthsvc.NewHealthService(healthsvc.Deps{StoreCheck: repo.Ping})),
		Sessions:    sessions,
		RateLimiter: limiter,
	})
	return &env{handler: h, repo: repo, sessions: sessions}
}

func (e *env) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

func TestSignIn_EndToEnd(t *testing.T) {
	e := newEnv(t, map[string]identity.ExternalIdentity{
		"tok-ana": {Provider: identity.ProviderGoogle, SubjectID: "g1", Email: "ana@example.com", DisplayName: "Ana"},
	}, nil)

	rec := e.do(t, http.MethodPost, "/v1/auth/social/google", map[string]string{"id_token": "tok-ana"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status       string `json:"status"`
		SessionToken string `json:"session_token"`
		TokenType    string `json:"token_type"`
		Created      bool   `json:"created"`
		Account      struct {
			Email           string   `json:"email"`
			LinkedProviders []string `json:"linked_providers"`
		} `json:"account"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.True(t, resp.Created)
	assert.Equal(t, "ana@example.com", resp.Account.Email)
	assert.Equal(t, []string{"google"}, resp.Account.LinkedProviders)

	claims, err := e.sessions.Verify(resp.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Email)

	// Cache-Control: no-store en endpoints de auth.
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestSignIn_LinkRequiredAndConfirm(t *testing.T) {
	e := newEnv(t, map[string]identity.ExternalIdentity{
		"tok-ana": {Provider: identity.ProviderGoogle, SubjectID: "g1", Email: "ana@example.com"},
	}, nil)
	ctx := context.Background()

	hash, err := password.Hash(password.Default, "hunter22")
	require.NoError(t, err)
	_, err = e.repo.Create(ctx, store.CreateAccountInput{Email: "ana@example.com", PasswordHash: hash})
	require.NoError(t, err)

	rec := e.do(t, http.MethodPost, "/v1/auth/social/google", map[string]string{"id_token": "tok-ana"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var linkResp struct {
		Status    string `json:"status"`
		LinkToken string `json:"link_token"`
		Email     string `json:"email"`
		ExpiresIn int64  `json:"expires_in"`
	}
	decode(t, rec, &linkResp)
	require.Equal(t, "link_required", linkResp.Status)
	require.NotEmpty(t, linkResp.LinkToken)
	assert.Equal(t, int64(600), linkResp.ExpiresIn)

	// Confirmación con password incorrecto: 401 con código estable.
	rec = e.do(t, http.MethodPost, "/v1/auth/social/link/confirm", map[string]string{
		"link_token": linkResp.LinkToken,
		"email":      "ana@example.com",
		"password":   "mala",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var errResp struct {
		Code string `json:"code"`
	}
	decode(t, rec, &errResp)
	assert.Equal(t, "INVALID_CREDENTIALS", errResp.Code)

	// Confirmación correcta: sesión emitida y provider linkeado.
	rec = e.do(t, http.MethodPost, "/v1/auth/social/link/confirm", map[string]string{
		"link_token": linkResp.LinkToken,
		"email":      "ana@example.com",
		"password":   "hunter22",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var okResp struct {
		Status  string `json:"status"`
		Account struct {
			LinkedProviders []string `json:"linked_providers"`
		} `json:"account"`
	}
	decode(t, rec, &okResp)
	assert.Equal(t, "ok", okResp.Status)
	assert.Contains(t, okResp.Account.LinkedProviders, "google")
}

func TestSignIn_ErrorMapping(t *testing.T) {
	e := newEnv(t, map[string]identity.ExternalIdentity{}, nil)

	cases := []struct {
		name     string
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"unsupported provider", "/v1/auth/social/facebook", map[string]string{"id_token": "x"}, http.StatusBadRequest, "UNSUPPORTED_PROVIDER"},
		{"missing credential", "/v1/auth/social/google", map[string]string{}, http.StatusBadRequest, "MISSING_FIELDS"},
		{"bad token", "/v1/auth/social/google", map[string]string{"id_token": "nope"}, http.StatusUnauthorized, "TOKEN_INVALID"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, tc.path, tc.body, nil)
			assert.Equal(t, tc.wantCode, rec.Code)
			var errResp struct {
				Code string `json:"code"`
			}
			decode(t, rec, &errResp)
			assert.Equal(t, tc.wantErr, errResp.Code)
		})
	}
}

func TestSignIn_InvalidJSONBody(t *testing.T) {
	e := newEnv(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/social/google", bytes.NewBufferString("{no json"))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLink_RequiresSession(t *testing.T) {
	e := newEnv(t, map[string]identity.ExternalIdentity{
		"tok-ana": {Provider: identity.ProviderGoogle, SubjectID: "g1", Email: "ana@example.com"},
	}, nil)

	body := map[string]string{"provider": "google", "id_token": "tok-ana"}

	// Sin Authorization: 401.
	rec := e.do(t, http.MethodPost, "/v1/auth/social/link", body, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Con sesión válida: 200 y provider linkeado.
	acct, err := e.repo.Create(context.Background(), store.CreateAccountInput{Email: "ana@example.com"})
	require.NoError(t, err)
	token, _, err := e.sessions.Issue(acct.ID, acct.Email)
	require.NoError(t, err)

	rec = e.do(t, http.MethodPost, "/v1/auth/social/link", body,
		http.Header{"Authorization": []string{"Bearer " + token}})
	require.Equal(t, http.StatusOK, rec.Code)
	var acctResp struct {
		LinkedProviders []string `json:"linked_providers"`
	}
	decode(t, rec, &acctResp)
	assert.Contains(t, acctResp.LinkedProviders, "google")
}

func TestProviderConfig_Endpoint(t *testing.T) {
	e := newEnv(t, nil, nil)

	rec := e.do(t, http.MethodGet, "/v1/auth/social/google/config", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg struct {
		Provider  string   `json:"provider"`
		Enabled   bool     `json:"enabled"`
		ClientIDs []string `json:"client_ids"`
	}
	decode(t, rec, &cfg)
	assert.Equal(t, "google", cfg.Provider)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"client-web"}, cfg.ClientIDs)
}

func TestRateLimit_RejectsWith429(t *testing.T) {
	limiter := rate.NewMemoryLimiter(cachemem.New(time.Minute), "", 2, time.Minute)
	e := newEnv(t, map[string]identity.ExternalIdentity{
		"tok-ana": {Provider: identity.ProviderGoogle, SubjectID: "g1", Email: "ana@example.com"},
	}, limiter)

	body := map[string]string{"id_token": "tok-ana"}
	for i := 0; i < 2; i++ {
		rec := e.do(t, http.MethodPost, "/v1/auth/social/google", body, nil)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
	rec := e.do(t, http.MethodPost, "/v1/auth/social/google", body, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	var errResp struct {
		Code string `json:"code"`
	}
	decode(t, rec, &errResp)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errResp.Code)
}

func TestHealthzAndNotFound(t *testing.T) {
	e := newEnv(t, nil, nil)

	rec := e.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health struct {
		Status string `json:"status"`
	}
	decode(t, rec, &health)
	assert.Equal(t, "ready", health.Status)

	rec = e.do(t, http.MethodGet, "/no-existe", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/auth/login", nil, nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	e := newEnv(t, nil, nil)
	rec := e.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
