// Package cache provee un cache key/value con soporte multi-backend.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para producción)
package cache

import "time"

// Cache define las operaciones mínimas que consumen el rate limiter
// y demás componentes del servicio.
type Cache interface {
	Get(k string) ([]byte, bool)
	Set(k string, v []byte, ttl time.Duration)
	Delete(k string)
}
