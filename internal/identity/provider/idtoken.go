package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/oscarho2/giglink-identity/internal/identity"
	"github.com/oscarho2/giglink-identity/internal/identity/provider/jwks"
)

// clockSkew tolerancia al validar exp.
const clockSkew = 30 * time.Second

// IDClaims son los claims de identidad que extraemos de un ID token.
type IDClaims struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
	Raw           jwtv5.MapClaims
}

// VerifyIDToken valida un ID token RS256 contra el key set cacheado del
// provider y los issuer/audience esperados. Es el núcleo común de los dos
// verifiers; cada provider aporta su jwks.Cache, issuers y client IDs.
func VerifyIDToken(ctx context.Context, keys *jwks.Cache, raw string, issuers, audiences []string) (*IDClaims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, identity.ErrMalformedToken
	}
	hb, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, identity.ErrMalformedToken
	}
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(hb, &header); err != nil {
		return nil, identity.ErrMalformedToken
	}
	if header.Alg != "RS256" {
		return nil, fmt.Errorf("%w: unexpected alg %s", identity.ErrTokenVerificationFailed, header.Alg)
	}

	key, err := keys.Key(ctx, header.Kid)
	if err != nil {
		return nil, err
	}

	tok, err := jwtv5.Parse(raw,
		func(t *jwtv5.Token) (any, error) { return key, nil },
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithoutClaimsValidation(),
	)
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: bad signature", identity.ErrTokenVerificationFailed)
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, identity.ErrTokenVerificationFailed
	}

	// issuer: match exacto contra los conocidos del provider
	iss, _ := claims["iss"].(string)
	issOK := false
	for _, want := range issuers {
		if iss == want {
			issOK = true
			break
		}
	}
	if !issOK {
		return nil, fmt.Errorf("%w: bad iss %q", identity.ErrTokenVerificationFailed, iss)
	}

	// audience: alguno de los client IDs registrados (web, mobile)
	if !audMatches(claims["aud"], audiences) {
		return nil, fmt.Errorf("%w: bad aud", identity.ErrTokenVerificationFailed)
	}

	// expiry con gracia corta
	expf, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: missing exp", identity.ErrTokenVerificationFailed)
	}
	if time.Unix(int64(expf), 0).Before(time.Now().Add(-clockSkew)) {
		return nil, fmt.Errorf("%w: token expired", identity.ErrTokenVerificationFailed)
	}

	return &IDClaims{
		Sub:           strClaim(claims, "sub"),
		Email:         strClaim(claims, "email"),
		EmailVerified: boolClaim(claims, "email_verified"),
		Name:          strClaim(claims, "name"),
		Raw:           claims,
	}, nil
}

func audMatches(aud any, allowed []string) bool {
	switch a := aud.(type) {
	case string:
		for _, want := range allowed {
			if a == want {
				return true
			}
		}
	case []any:
		for _, v := range a {
			s, _ := v.(string)
			for _, want := range allowed {
				if s == want {
					return true
				}
			}
		}
	}
	return false
}

func strClaim(m jwtv5.MapClaims, k string) string {
	s, _ := m[k].(string)
	return s
}

func boolClaim(m jwtv5.MapClaims, k string) bool {
	switch v := m[k].(type) {
	case bool:
		return v
	case string:
		// Apple manda email_verified como string "true"/"false"
		return v == "true"
	}
	return false
}
