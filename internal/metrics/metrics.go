// Package metrics define las métricas Prometheus del servicio en un
// paquete aparte para evitar ciclos de import entre HTTP y services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo por método y ruta",
	}, []string{"method", "path"})

	// Dominio: resultados del flujo de sign-in social.
	// outcome: session|created|link_required|link_confirmed|error
	SignInTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_signin_total",
		Help: "Intentos de sign-in social por provider y resultado",
	}, []string{"provider", "outcome"})

	// Lookups de clave en el cache JWKS por provider y resultado
	// (hit|refresh|error).
	JWKSLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jwks_key_lookups_total",
		Help: "Lookups de clave JWKS por provider y resultado",
	}, []string{"provider", "result"})

	RateLimitRejectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_rejects_total",
		Help: "Requests rechazadas por rate limiting",
	}, []string{"path"})
)

// Register registra todas las métricas en el registry indicado
// (default si es nil), ignorando duplicados.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPInflight,
		SignInTotal,
		JWKSLookupsTotal,
		RateLimitRejectsTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
