// Package session emite el bearer token propio de GigLink.
package session

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Purpose distingue una sesión de cualquier otro token firmado con el
// mismo secret (p.ej. link tokens).
const Purpose = "session"

// DefaultTTL es la vida estándar de una sesión.
const DefaultTTL = 7 * 24 * time.Hour

var (
	ErrInvalid = errors.New("session token invalid")
	ErrExpired = errors.New("session token expired")
)

// Claims de una sesión verificada.
type Claims struct {
	AccountID string
	Email     string
}

// Issuer firma sesiones con el secret de la aplicación. Función pura de
// (cuenta, reloj): no guarda estado.
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

// Issue firma una sesión para la cuenta dada.
func (i *Issuer) Issue(accountID, email string) (token string, expiresAt time.Time, err error) {
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"iss":     i.iss,
		"sub":     accountID,
		"email":   email,
		"purpose": Purpose,
		"iat":     now.Unix(),
		"exp":     exp.Unix(),
	})
	token, err = tk.SignedString(i.secret)
	return token, exp, err
}

// Verify valida una sesión y devuelve sus claims.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	tk, err := jwtv5.Parse(raw,
		func(t *jwtv5.Token) (any, error) { return i.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	mc, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok || !tk.Valid {
		return nil, ErrInvalid
	}
	if purpose, _ := mc["purpose"].(string); purpose != Purpose {
		return nil, ErrInvalid
	}
	if iss, _ := mc["iss"].(string); i.iss != "" && iss != i.iss {
		return nil, ErrInvalid
	}
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, ErrInvalid
	}
	email, _ := mc["email"].(string)
	return &Claims{AccountID: sub, Email: email}, nil
}
