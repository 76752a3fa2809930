package middlewares

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oscarho2/giglink-identity/internal/metrics"
)

// providerSegment colapsa el segmento de provider para no explotar la
// cardinalidad de labels con valores arbitrarios del cliente.
var providerSegment = regexp.MustCompile(`^/v1/auth/social/[^/]+`)

func normalizePath(p string) string {
	if strings.HasPrefix(p, "/v1/auth/social/link") {
		return p
	}
	if providerSegment.MatchString(p) {
		rest := providerSegment.ReplaceAllString(p, "")
		return "/v1/auth/social/{provider}" + rest
	}
	return p
}

// WithMetrics instrumenta requests HTTP con métricas Prometheus
// (contadores, latencia, inflight).
func WithMetrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method := strings.ToUpper(r.Method)
			pathLabel := normalizePath(r.URL.Path)

			metrics.HTTPInflight.WithLabelValues(method, pathLabel).Inc()
			start := time.Now()

			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				metrics.HTTPInflight.WithLabelValues(method, pathLabel).Dec()
				metrics.HTTPRequestDuration.WithLabelValues(method, pathLabel).Observe(time.Since(start).Seconds())

				status := rec.status
				if status == 0 {
					status = http.StatusOK
				}
				metrics.HTTPRequestsTotal.WithLabelValues(method, pathLabel, strconv.Itoa(status)).Inc()
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
