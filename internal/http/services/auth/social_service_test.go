package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dto "github.com/oscarho2/giglink-identity/internal/http/dto/auth"
	svc "github.com/oscarho2/giglink-identity/internal/http/services/auth"
	"github.com/oscarho2/giglink-identity/internal/identity"
	"github.com/oscarho2/giglink-identity/internal/identity/linktoken"
	"github.com/oscarho2/giglink-identity/internal/identity/provider"
	"github.com/oscarho2/giglink-identity/internal/identity/resolver"
	"github.com/oscarho2/giglink-identity/internal/security/password"
	"github.com/oscarho2/giglink-identity/internal/session"
	"github.com/oscarho2/giglink-identity/internal/store"
	"github.com/oscarho2/giglink-identity/internal/store/memory"
)

var secret = []byte("super-secret-de-test-0123456789ab")

// fakeVerifier devuelve la identidad fijada para un raw token dado, o el
// error configurado. Implementa también CodeExchanger cuando codes != nil.
type fakeVerifier struct {
	byToken map[string]identity.ExternalIdentity
	codes   map[string]string // code -> id_token
	err     error
}

func (f *fakeVerifier) Verify(_ context.Context, raw string) (*identity.ExternalIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	id, ok := f.byToken[raw]
	if !ok {
		return nil, identity.ErrTokenVerificationFailed
	}
	return &id, nil
}

type fakeExchanger struct {
	*fakeVerifier
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, code, _ string) (string, error) {
	tok, ok := f.codes[code]
	if !ok {
		return "", identity.ErrProviderExchangeFailed
	}
	return tok, nil
}

// recordingNotifier captura los avisos de seguridad enviados.
type recordingNotifier struct {
	sent []string
	fail bool
}

func (n *recordingNotifier) ProviderLinked(_ context.Context, to, providerName string) error {
	if n.fail {
		return errors.New("smtp down")
	}
	n.sent = append(n.sent, to+":"+providerName)
	return nil
}

type fixture struct {
	svc      svc.SocialService
	repo     *memory.Repo
	notifier *recordingNotifier
	sessions *session.Issuer
}

func newFixture(t *testing.T, google provider.Verifier) *fixture {
	t.Helper()
	repo := memory.New()
	registry := provider.NewRegistry()
	registry.Register(identity.ProviderGoogle, google)

	links := linktoken.NewIssuer(secret, "giglink", 10*time.Minute)
	sessions := session.NewIssuer(secret, "giglink", time.Hour)
	notifier := &recordingNotifier{}

	s := svc.NewSocialService(svc.Deps{
		Registry: registry,
		Resolver: resolver.New(repo, links),
		Sessions: sessions,
		Notifier: notifier,
		LinkTTL:  10 * time.Minute,
		PublicConfig: map[identity.Provider]svc.ProviderPublicConfig{
			identity.ProviderGoogle: {
				Enabled:     true,
				ClientIDs:   []string{"client-web"},
				RedirectURI: "https://app.example/cb",
			},
		},
	})
	return &fixture{svc: s, repo: repo, notifier: notifier, sessions: sessions}
}

func googleID(email string) identity.ExternalIdentity {
	return identity.ExternalIdentity{
		Provider:    identity.ProviderGoogle,
		SubjectID:   "google-sub-1",
		Email:       email,
		DisplayName: "Ana",
	}
}

func TestSignIn_FreshSignupIssuesSession(t *testing.T) {
	f := newFixture(t, &fakeVerifier{byToken: map[string]identity.ExternalIdentity{
		"tok-ana": googleID("ana@example.com"),
	}})

	res, err := f.svc.SignIn(context.Background(), "google", dto.SignInRequest{IDToken: "tok-ana"})
	require.NoError(t, err)
	assert.False(t, res.LinkRequired)
	assert.True(t, res.Created)
	require.NotEmpty(t, res.SessionToken)

	// La sesión emitida verifica contra el mismo issuer.
	claims, err := f.sessions.Verify(res.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, claims.AccountID)
	assert.Equal(t, "ana@example.com", claims.Email)
}

func TestSignIn_CodeFlow(t *testing.T) {
	fv := &fakeVerifier{
		byToken: map[string]identity.ExternalIdentity{"tok-ana": googleID("ana@example.com")},
		codes:   map[string]string{"code-123": "tok-ana"},
	}
	f := newFixture(t, &fakeExchanger{fakeVerifier: fv})

	res, err := f.svc.SignIn(context.Background(), "google", dto.SignInRequest{Code: "code-123"})
	require.NoError(t, err)
	assert.False(t, res.LinkRequired)
}

func TestSignIn_CodeOnVerifierOnlyProvider(t *testing.T) {
	// El fake sin Exchanger simula un provider sin flujo de code.
	f := newFixture(t, &fakeVerifier{byToken: map[string]identity.ExternalIdentity{}})

	_, err := f.svc.SignIn(context.Background(), "google", dto.SignInRequest{Code: "code-123"})
	assert.ErrorIs(t, err, svc.ErrCodeNotSupported)
}

func TestSignIn_MissingCredential(t *testing.T) {
	f := newFixture(t, &fakeVerifier{})
	_, err := f.svc.SignIn(context.Background(), "google", dto.SignInRequest{})
	assert.ErrorIs(t, err, svc.ErrCredentialMissing)
}

func TestSignIn_UnknownProvider(t *testing.T) {
	f := newFixture(t, &fakeVerifier{})
	_, err := f.svc.SignIn(context.Background(), "facebook", dto.SignInRequest{IDToken: "x"})
	assert.ErrorIs(t, err, provider.ErrUnsupportedProvider)
}

func TestSignIn_CollisionThenConfirmLink(t *testing.T) {
	f := newFixture(t, &fakeVerifier{byToken: map[string]identity.ExternalIdentity{
		"tok-ana": googleID("ana@example.com"),
	}})
	ctx := context.Background()

	// Cuenta local preexistente con password.
	hash, err := password.Hash(password.Default, "hunter22")
	require.NoError(t, err)
	_, err = f.repo.Create(ctx, store.CreateAccountInput{Email: "ana@example.com", PasswordHash: hash})
	require.NoError(t, err)

	res, err := f.svc.SignIn(ctx, "google", dto.SignInRequest{IDToken: "tok-ana"})
	require.NoError(t, err)
	require.True(t, res.LinkRequired)
	assert.Equal(t, "ana@example.com", res.Email)
	assert.Equal(t, 10*time.Minute, res.LinkExpires)
	require.NotEmpty(t, res.LinkToken)

	confirmed, err := f.svc.ConfirmLink(ctx, dto.ConfirmLinkRequest{
		LinkToken: res.LinkToken,
		Email:     "ana@example.com",
		Password:  "hunter22",
	})
	require.NoError(t, err)
	assert.False(t, confirmed.LinkRequired)
	assert.NotEmpty(t, confirmed.SessionToken)
	assert.Contains(t, confirmed.Account.LinkedProviders, "google")

	// Se mandó el aviso de seguridad.
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "ana@example.com:google", f.notifier.sent[0])
}

func TestConfirmLink_NotifierFailureDoesNotAbort(t *testing.T) {
	f := newFixture(t, &fakeVerifier{byToken: map[string]identity.ExternalIdentity{
		"tok-ana": googleID("ana@example.com"),
	}})
	f.notifier.fail = true
	ctx := context.Background()

	hash, err := password.Hash(password.Default, "hunter22")
	require.NoError(t, err)
	_, err = f.repo.Create(ctx, store.CreateAccountInput{Email: "ana@example.com", PasswordHash: hash})
	require.NoError(t, err)

	res, err := f.svc.SignIn(ctx, "google", dto.SignInRequest{IDToken: "tok-ana"})
	require.NoError(t, err)

	confirmed, err := f.svc.ConfirmLink(ctx, dto.ConfirmLinkRequest{
		LinkToken: res.LinkToken,
		Email:     "ana@example.com",
		Password:  "hunter22",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, confirmed.SessionToken)
}

func TestConfirmLink_MissingFields(t *testing.T) {
	f := newFixture(t, &fakeVerifier{})
	_, err := f.svc.ConfirmLink(context.Background(), dto.ConfirmLinkRequest{LinkToken: "x"})
	assert.ErrorIs(t, err, svc.ErrCredentialMissing)
}

func TestLink_WithActiveSession(t *testing.T) {
	f := newFixture(t, &fakeVerifier{byToken: map[string]identity.ExternalIdentity{
		"tok-ana": googleID("Ana@Example.com"),
	}})
	ctx := context.Background()

	acct, err := f.repo.Create(ctx, store.CreateAccountInput{Email: "ana@example.com"})
	require.NoError(t, err)

	linked, err := f.svc.Link(ctx, acct.ID, "google", dto.LinkRequest{IDToken: "tok-ana"})
	require.NoError(t, err)
	assert.Contains(t, linked.LinkedProviders, "google")
	require.Len(t, f.notifier.sent, 1)
}

func TestLink_EmailMismatch(t *testing.T) {
	f := newFixture(t, &fakeVerifier{byToken: map[string]identity.ExternalIdentity{
		"tok-otra": googleID("otra@example.com"),
	}})
	ctx := context.Background()

	acct, err := f.repo.Create(ctx, store.CreateAccountInput{Email: "ana@example.com"})
	require.NoError(t, err)

	_, err = f.svc.Link(ctx, acct.ID, "google", dto.LinkRequest{IDToken: "tok-otra"})
	assert.ErrorIs(t, err, identity.ErrEmailMismatch)
	assert.Empty(t, f.notifier.sent)
}

func TestProviderConfig(t *testing.T) {
	f := newFixture(t, &fakeVerifier{})
	ctx := context.Background()

	cfg, err := f.svc.ProviderConfig(ctx, "google")
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"client-web"}, cfg.ClientIDs)
	assert.Equal(t, "https://app.example/cb", cfg.RedirectURI)

	// Provider soportado pero no configurado: enabled=false, sin secretos.
	apple, err := f.svc.ProviderConfig(ctx, "apple")
	require.NoError(t, err)
	assert.False(t, apple.Enabled)

	_, err = f.svc.ProviderConfig(ctx, "facebook")
	assert.ErrorIs(t, err, provider.ErrUnsupportedProvider)
}
