// Package google verifica ID tokens de Google Sign-In.
package google

import (
	"context"
	"net/http"
	"time"

	"github.com/oscarho2/giglink-identity/internal/identity"
	"github.com/oscarho2/giglink-identity/internal/identity/provider"
	"github.com/oscarho2/giglink-identity/internal/identity/provider/jwks"
)

const (
	// JWKSURL es el endpoint publicado de certs OIDC de Google.
	JWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// Google acepta ambas formas del issuer.
var issuers = []string{"https://accounts.google.com", "accounts.google.com"}

// Verifier valida ID tokens de Google contra el JWKS cacheado.
type Verifier struct {
	clientIDs []string
	keys      *jwks.Cache
}

// Options permite override de endpoints y timeouts (tests).
type Options struct {
	JWKSURL string
	KeyTTL  time.Duration
	Client  *http.Client
}

// New crea el verifier de Google. clientIDs son las audiences aceptadas
// (una por superficie registrada: web, iOS, Android).
func New(clientIDs []string, opts Options) *Verifier {
	url := opts.JWKSURL
	if url == "" {
		url = JWKSURL
	}
	return &Verifier{
		clientIDs: clientIDs,
		keys:      jwks.New(url, opts.KeyTTL, opts.Client).WithName("google"),
	}
}

// Verify implementa provider.Verifier.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*identity.ExternalIdentity, error) {
	claims, err := provider.VerifyIDToken(ctx, v.keys, rawToken, issuers, v.clientIDs)
	if err != nil {
		return nil, err
	}
	return &identity.ExternalIdentity{
		Provider:    identity.ProviderGoogle,
		SubjectID:   claims.Sub,
		Email:       claims.Email,
		DisplayName: claims.Name,
	}, nil
}
