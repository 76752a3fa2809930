// Package jwks mantiene el cache process-wide de signing keys publicadas por
// cada provider. El key set se reemplaza entero (nunca se mergea) y las
// lecturas concurrentes no toman locks: un atomic.Pointer al snapshot actual.
package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/oscarho2/giglink-identity/internal/identity"
	"github.com/oscarho2/giglink-identity/internal/metrics"
)

// DefaultTTL es la vida útil del key set cacheado.
const DefaultTTL = time.Hour

type jwk struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	N   string `json:"n"` // base64url
	E   string `json:"e"` // base64url
}

type keyDoc struct {
	Keys []jwk `json:"keys"`
}

// snapshot es un key set inmutable ya parseado.
type snapshot struct {
	byKid     map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// Cache descarga y cachea el JWKS de un endpoint.
//
// Invariante: un lookup por kid ausente dispara exactamente un refetch antes
// de fallar. Refetches concurrentes se colapsan via singleflight; una lectura
// stale durante un refetch es aceptable (el snapshot siempre es consistente).
type Cache struct {
	url    string
	name   string
	ttl    time.Duration
	client *http.Client

	cur   atomic.Pointer[snapshot]
	group singleflight.Group
}

// New crea un cache para la URL de JWKS dada. client puede ser nil.
func New(url string, ttl time.Duration, client *http.Client) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Cache{url: url, name: "unknown", ttl: ttl, client: client}
}

// WithName asigna el label de provider que llevan las métricas de fetch.
func (c *Cache) WithName(name string) *Cache {
	c.name = name
	return c
}

// Key resuelve la public key RSA para un kid. Si el snapshot está vencido o
// el kid no aparece, refetchea una única vez y reintenta el lookup.
func (c *Cache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if s := c.cur.Load(); s != nil && time.Since(s.fetchedAt) < c.ttl {
		if k, ok := s.byKid[kid]; ok {
			metrics.JWKSLookupsTotal.WithLabelValues(c.name, "hit").Inc()
			return k, nil
		}
	}
	s, err := c.refresh(ctx)
	if err != nil {
		return nil, err
	}
	if k, ok := s.byKid[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("%w: kid %q", identity.ErrUnknownSigningKey, kid)
}

// refresh descarga el key set y lo instala como snapshot nuevo.
// Llamadas concurrentes comparten un único fetch.
func (c *Cache) refresh(ctx context.Context) (*snapshot, error) {
	v, err, _ := c.group.Do("jwks", func() (any, error) {
		s, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.cur.Store(s)
		return s, nil
	})
	if err != nil {
		metrics.JWKSLookupsTotal.WithLabelValues(c.name, "error").Inc()
		return nil, err
	}
	metrics.JWKSLookupsTotal.WithLabelValues(c.name, "refresh").Inc()
	return v.(*snapshot), nil
}

func (c *Cache) fetch(ctx context.Context) (*snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: jwks fetch: %v", identity.ErrProviderTimeout, err)
		}
		return nil, fmt.Errorf("jwks fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("jwks fetch: http %d", resp.StatusCode)
	}
	var doc keyDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("jwks decode: %w", err)
	}
	s := &snapshot{byKid: make(map[string]*rsa.PublicKey, len(doc.Keys)), fetchedAt: time.Now()}
	for _, k := range doc.Keys {
		if !strings.EqualFold(k.Kty, "RSA") || k.Kid == "" {
			continue
		}
		pub, err := rsaKey(k)
		if err != nil {
			// una key corrupta no invalida el set completo
			continue
		}
		s.byKid[k.Kid] = pub
	}
	return s, nil
}

func rsaKey(k jwk) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	e := 65537
	if len(eb) > 0 {
		e = 0
		for _, b := range eb {
			e = (e << 8) | int(b)
		}
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
