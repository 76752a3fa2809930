package middlewares

import (
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/oscarho2/giglink-identity/internal/http/errors"
	"github.com/oscarho2/giglink-identity/internal/session"
)

// RequireSession valida Authorization: Bearer <session JWT> y guarda las
// claims en el contexto. Si el token es inválido o falta, responde 401.
func RequireSession(sessions *session.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="missing bearer token"`)
				httperrors.WriteError(w, httperrors.ErrTokenMissing)
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			claims, err := sessions.Verify(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				if errors.Is(err, session.ErrExpired) {
					httperrors.WriteError(w, httperrors.ErrSessionExpired)
					return
				}
				httperrors.WriteError(w, httperrors.ErrTokenInvalid)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims)))
		})
	}
}
