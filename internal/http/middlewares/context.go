package middlewares

import (
	"context"

	"github.com/oscarho2/giglink-identity/internal/session"
)

type ctxKey string

const (
	// ctxSessionKey guarda las claims de sesión verificadas
	ctxSessionKey ctxKey = "session"
	// ctxAccountIDKey guarda el account ID extraído de la sesión
	ctxAccountIDKey ctxKey = "account_id"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// WithSession inyecta las claims de sesión en el contexto
func WithSession(ctx context.Context, claims *session.Claims) context.Context {
	ctx = context.WithValue(ctx, ctxSessionKey, claims)
	return context.WithValue(ctx, ctxAccountIDKey, claims.AccountID)
}

// setRequestID inyecta el request ID en el contexto (interno)
func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetSession obtiene las claims de sesión del contexto.
// Retorna nil si no hay sesión (middleware no aplicado o token inválido).
func GetSession(ctx context.Context) *session.Claims {
	if v := ctx.Value(ctxSessionKey); v != nil {
		if c, ok := v.(*session.Claims); ok {
			return c
		}
	}
	return nil
}

// GetAccountID obtiene el account ID del contexto.
// Retorna cadena vacía si no hay sesión.
func GetAccountID(ctx context.Context) string {
	if v := ctx.Value(ctxAccountIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetRequestID obtiene el request ID del contexto.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
