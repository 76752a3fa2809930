// Package router define las rutas HTTP del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authctrl "github.com/oscarho2/giglink-identity/internal/http/controllers/auth"
	healthctrl "github.com/oscarho2/giglink-identity/internal/http/controllers/health"
	httperrors "github.com/oscarho2/giglink-identity/internal/http/errors"
	mw "github.com/oscarho2/giglink-identity/internal/http/middlewares"
	"github.com/oscarho2/giglink-identity/internal/rate"
	"github.com/oscarho2/giglink-identity/internal/session"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Auth     *authctrl.Controllers
	Health   *healthctrl.HealthController
	Sessions *session.Issuer

	RateLimiter rate.Limiter // opcional
	CORSOrigins []string
}

// New arma el router completo con su middleware chain.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// Endpoints de auth: no-store siempre, rate limit por IP.
	authChain := []mw.Middleware{
		mw.WithNoStore(),
		mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.RateLimiter}),
	}

	r.Route("/v1/auth", func(r chi.Router) {
		r.Method(http.MethodPost, "/login",
			mw.ChainFunc(d.Auth.Login.Login, authChain...))

		r.Method(http.MethodPost, "/social/link/confirm",
			mw.ChainFunc(d.Auth.Social.ConfirmLink, authChain...))
		r.Method(http.MethodPost, "/social/link",
			mw.ChainFunc(d.Auth.Social.Link, append([]mw.Middleware{mw.RequireSession(d.Sessions)}, authChain...)...))

		r.Method(http.MethodPost, "/social/{provider}",
			mw.ChainFunc(d.Auth.Social.SignIn, authChain...))
		r.Method(http.MethodGet, "/social/{provider}/config",
			mw.ChainFunc(d.Auth.Social.Config))
	})

	r.Get("/healthz", d.Health.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Chain global: recover primero, luego request ID, CORS, headers,
	// métricas y logging.
	return mw.Chain(r,
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithCORS(d.CORSOrigins),
		mw.WithSecurityHeaders(),
		mw.WithMetrics(),
		mw.WithLogging(),
	)
}
