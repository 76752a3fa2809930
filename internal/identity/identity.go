// Package identity define los tipos y errores compartidos del flujo de
// sign-in federado (Google / Apple) de GigLink.
package identity

import "errors"

// Provider identifica un proveedor de identidad externo soportado.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

// Valid reporta si el provider es uno de los soportados.
func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderApple
}

// ParseProvider normaliza un provider recibido por la API.
func ParseProvider(s string) (Provider, bool) {
	switch Provider(s) {
	case ProviderGoogle:
		return ProviderGoogle, true
	case ProviderApple:
		return ProviderApple, true
	}
	return "", false
}

// ExternalIdentity es el resultado de verificar una credencial emitida por
// un provider. Es transitoria: se fusiona en una Account o se descarta.
type ExternalIdentity struct {
	Provider    Provider
	SubjectID   string
	Email       string // puede venir vacío; el resolver lo rechaza
	DisplayName string
}

// Errores esperados del flujo. Cada uno mapea a un código estable hacia el
// cliente; ninguno es un crash del servidor.
var (
	// ErrMalformedToken: el token no se pudo partir en sus tres segmentos
	// o el header no es JSON válido.
	ErrMalformedToken = errors.New("malformed provider token")

	// ErrUnknownSigningKey: el kid no aparece en el key set del provider
	// incluso después de un refetch forzado.
	ErrUnknownSigningKey = errors.New("unknown signing key")

	// ErrTokenVerificationFailed: firma, issuer, audience o expiry inválidos.
	ErrTokenVerificationFailed = errors.New("token verification failed")

	// ErrProviderExchangeFailed: el token endpoint del provider respondió non-2xx.
	ErrProviderExchangeFailed = errors.New("provider code exchange failed")

	// ErrProviderTimeout: una llamada HTTP al provider superó el timeout.
	ErrProviderTimeout = errors.New("provider request timed out")

	// ErrMissingEmailClaim: el token verificado no trae email y el modelo
	// local de cuentas lo requiere.
	ErrMissingEmailClaim = errors.New("missing email claim")

	ErrLinkTokenInvalid = errors.New("link token invalid")
	ErrLinkTokenExpired = errors.New("link token expired")

	// ErrEmailMismatch: el email presentado al confirmar el link no coincide
	// con el embebido en el link token.
	ErrEmailMismatch = errors.New("email mismatch")

	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountAlreadyExists: dos sign-in concurrentes corrieron a crear la
	// misma cuenta; el unique de email en el store es el backstop.
	ErrAccountAlreadyExists = errors.New("account already exists")
)
