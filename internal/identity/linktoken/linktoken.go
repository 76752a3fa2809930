// Package linktoken emite y valida el token de confirmación de linking.
//
// Es un JWT corto firmado con el mismo secret de sesión pero con
// purpose="link": un link token jamás pasa donde se espera una sesión y
// viceversa. No hay revocation store server-side; single-use es por
// convención del flujo (el redeem exitoso produce una sesión y el cliente
// descarta el token).
package linktoken

import (
	"errors"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/oscarho2/giglink-identity/internal/identity"
)

// Purpose es el valor del claim "purpose" de los link tokens.
const Purpose = "link"

// DefaultTTL de un link token.
const DefaultTTL = 10 * time.Minute

// Claims es lo que viaja dentro del token: la identidad externa pendiente
// más el email de la cuenta local con la que colisionó.
type Claims struct {
	Identity identity.ExternalIdentity
	Email    string
}

// Issuer firma y valida link tokens.
type Issuer struct {
	secret []byte
	iss    string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, iss string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: secret, iss: iss, ttl: ttl, now: time.Now}
}

// WithClock fija el reloj (tests).
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue firma un link token embebiendo la identidad pendiente.
func (i *Issuer) Issue(id identity.ExternalIdentity, email string) (string, error) {
	now := i.now().UTC()
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"iss":      i.iss,
		"purpose":  Purpose,
		"iat":      now.Unix(),
		"exp":      now.Add(i.ttl).Unix(),
		"provider": string(id.Provider),
		"sub":      id.SubjectID,
		"email":    email,
		"name":     id.DisplayName,
	})
	return tk.SignedString(i.secret)
}

// Redeem valida firma, purpose y expiry, y devuelve la identidad embebida.
// Falla con ErrLinkTokenExpired o ErrLinkTokenInvalid.
func (i *Issuer) Redeem(raw string) (*Claims, error) {
	tk, err := jwtv5.Parse(raw,
		func(t *jwtv5.Token) (any, error) { return i.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, identity.ErrLinkTokenExpired
		}
		return nil, identity.ErrLinkTokenInvalid
	}
	mc, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok || !tk.Valid {
		return nil, identity.ErrLinkTokenInvalid
	}
	if purpose, _ := mc["purpose"].(string); purpose != Purpose {
		return nil, identity.ErrLinkTokenInvalid
	}
	if iss, _ := mc["iss"].(string); i.iss != "" && iss != i.iss {
		return nil, identity.ErrLinkTokenInvalid
	}

	prov, ok := identity.ParseProvider(getString(mc, "provider"))
	if !ok {
		return nil, identity.ErrLinkTokenInvalid
	}
	email := strings.ToLower(getString(mc, "email"))
	if email == "" {
		return nil, identity.ErrLinkTokenInvalid
	}
	return &Claims{
		Identity: identity.ExternalIdentity{
			Provider:    prov,
			SubjectID:   getString(mc, "sub"),
			Email:       email,
			DisplayName: getString(mc, "name"),
		},
		Email: email,
	}, nil
}

func getString(m jwtv5.MapClaims, key string) string {
	s, _ := m[key].(string)
	return s
}
