// Package provider define la capability polimórfica que convierte una
// credencial cruda del provider en una ExternalIdentity verificada.
package provider

import (
	"context"
	"errors"

	"github.com/oscarho2/giglink-identity/internal/identity"
)

// Verifier valida un ID token emitido por un provider y extrae los claims
// de identidad. Cada provider soportado aporta una implementación.
type Verifier interface {
	// Verify valida firma, issuer, audience y expiry del token.
	Verify(ctx context.Context, rawToken string) (*identity.ExternalIdentity, error)
}

// CodeExchanger cubre el flujo web de Apple: el cliente entrega un
// authorization code en vez de un ID token usable.
type CodeExchanger interface {
	// ExchangeCode canjea el code por un ID token en el token endpoint.
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
}

// ErrUnsupportedProvider: el provider pedido no está registrado.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Registry selecciona el Verifier por provider enum.
type Registry struct {
	verifiers map[identity.Provider]Verifier
}

func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[identity.Provider]Verifier)}
}

// Register asocia un Verifier a un provider. Reemplaza si ya existía.
func (r *Registry) Register(p identity.Provider, v Verifier) {
	r.verifiers[p] = v
}

// Verifier devuelve el Verifier registrado para el provider.
func (r *Registry) Verifier(p identity.Provider) (Verifier, error) {
	v, ok := r.verifiers[p]
	if !ok {
		return nil, ErrUnsupportedProvider
	}
	return v, nil
}

// Exchanger devuelve el CodeExchanger si el provider lo soporta.
func (r *Registry) Exchanger(p identity.Provider) (CodeExchanger, bool) {
	v, ok := r.verifiers[p]
	if !ok {
		return nil, false
	}
	ex, ok := v.(CodeExchanger)
	return ex, ok
}
