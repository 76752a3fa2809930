// Package apple verifica ID tokens de Sign in with Apple y canjea los
// authorization codes del flujo web (Apple no entrega el ID token directo
// en web: primero hay que pasar por su token endpoint con un client secret
// firmado por nosotros).
package apple

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/oscarho2/giglink-identity/internal/identity"
	"github.com/oscarho2/giglink-identity/internal/identity/provider"
	"github.com/oscarho2/giglink-identity/internal/identity/provider/jwks"
)

const (
	Issuer   = "https://appleid.apple.com"
	JWKSURL  = "https://appleid.apple.com/auth/keys"
	TokenURL = "https://appleid.apple.com/auth/token"

	// clientSecretTTL: Apple permite hasta 6 meses; usamos 5 minutos porque
	// el secret se genera por exchange y se descarta.
	clientSecretTTL = 5 * time.Minute
)

// Config agrupa las credenciales de la app registrada en Apple.
type Config struct {
	ClientIDs  []string // services IDs / bundle IDs aceptados como aud
	TeamID     string
	KeyID      string
	PrivateKey *ecdsa.PrivateKey // la key P-256 descargada del developer portal
}

// Options permite override de endpoints (tests).
type Options struct {
	JWKSURL  string
	TokenURL string
	Issuer   string
	KeyTTL   time.Duration
	Client   *http.Client
}

// Verifier valida ID tokens de Apple y canjea authorization codes.
type Verifier struct {
	cfg      Config
	issuer   string
	tokenURL string
	keys     *jwks.Cache
	client   *http.Client
}

func New(cfg Config, opts Options) *Verifier {
	jwksURL := opts.JWKSURL
	if jwksURL == "" {
		jwksURL = JWKSURL
	}
	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = TokenURL
	}
	iss := opts.Issuer
	if iss == "" {
		iss = Issuer
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Verifier{
		cfg:      cfg,
		issuer:   iss,
		tokenURL: tokenURL,
		keys:     jwks.New(jwksURL, opts.KeyTTL, client).WithName("apple"),
		client:   client,
	}
}

// Verify implementa provider.Verifier.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*identity.ExternalIdentity, error) {
	claims, err := provider.VerifyIDToken(ctx, v.keys, rawToken, []string{v.issuer}, v.cfg.ClientIDs)
	if err != nil {
		return nil, err
	}
	return &identity.ExternalIdentity{
		Provider:    identity.ProviderApple,
		SubjectID:   claims.Sub,
		Email:       claims.Email,
		DisplayName: claims.Name,
	}, nil
}

// ExchangeCode implementa provider.CodeExchanger: canjea el authorization
// code del flujo web por un ID token en el token endpoint de Apple.
func (v *Verifier) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	if len(v.cfg.ClientIDs) == 0 {
		return "", fmt.Errorf("%w: no client id configured", identity.ErrProviderExchangeFailed)
	}
	clientID := v.cfg.ClientIDs[0]

	secret, err := v.clientSecret(clientID)
	if err != nil {
		return "", fmt.Errorf("%w: client secret: %v", identity.ErrProviderExchangeFailed, err)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", clientID)
	form.Set("client_secret", secret)
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: token endpoint: %v", identity.ErrProviderTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", identity.ErrProviderExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return "", fmt.Errorf("%w: http %d %s", identity.ErrProviderExchangeFailed, resp.StatusCode, body.Error)
	}

	var tr struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: decode: %v", identity.ErrProviderExchangeFailed, err)
	}
	if tr.IDToken == "" {
		return "", fmt.Errorf("%w: empty id_token", identity.ErrProviderExchangeFailed)
	}
	return tr.IDToken, nil
}

// clientSecret arma la client assertion ES256 que Apple exige como secret:
// {iss: teamID, sub: clientID, aud: issuer} firmada con la private key P-256.
func (v *Verifier) clientSecret(clientID string) (string, error) {
	if v.cfg.PrivateKey == nil {
		return "", errors.New("apple private key not configured")
	}
	now := time.Now().UTC()
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodES256, jwtv5.MapClaims{
		"iss": v.cfg.TeamID,
		"sub": clientID,
		"aud": Issuer,
		"iat": now.Unix(),
		"exp": now.Add(clientSecretTTL).Unix(),
	})
	tk.Header["kid"] = v.cfg.KeyID
	return tk.SignedString(v.cfg.PrivateKey)
}

// ParsePrivateKey lee la .p8 (PKCS#8 PEM) descargada del developer portal.
func ParsePrivateKey(pemBytes []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("apple: no PEM block in private key")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("apple: parse private key: %w", err)
	}
	ec, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("apple: private key is not ECDSA")
	}
	return ec, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
