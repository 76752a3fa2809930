// Package health contiene el service para health checks.
package health

import (
	"context"
	"fmt"
	"os"
	"time"

	dto "github.com/oscarho2/giglink-identity/internal/http/dto/health"
	"github.com/oscarho2/giglink-identity/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps contiene los checks inyectables. Los nil se omiten.
type Deps struct {
	StoreCheck func(ctx context.Context) error // ping al account store (crítico)
	RedisCheck func(ctx context.Context) error // ping a redis (no crítico)
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	return &healthService{deps: deps}
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("health"))

	response := dto.HealthResponse{
		Components: make(map[string]dto.HealthStatus),
		Timestamp:  time.Now().UTC(),
	}
	if v := os.Getenv("SERVICE_VERSION"); v != "" {
		response.Version = v
	}

	critical := false
	degraded := false

	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if s.deps.StoreCheck != nil {
		if err := s.deps.StoreCheck(checkCtx); err != nil {
			response.Components["store"] = dto.HealthStatus{
				Status:  "error",
				Message: fmt.Sprintf("unavailable: %v", err),
			}
			critical = true
			log.Error("store unavailable", logger.Err(err))
		} else {
			response.Components["store"] = dto.HealthStatus{Status: "ok"}
		}
	}

	if s.deps.RedisCheck != nil {
		if err := s.deps.RedisCheck(checkCtx); err != nil {
			response.Components["redis"] = dto.HealthStatus{
				Status:  "error",
				Message: fmt.Sprintf("unavailable: %v", err),
			}
			degraded = true
			log.Warn("redis unavailable", logger.Err(err))
		} else {
			response.Components["redis"] = dto.HealthStatus{Status: "ok"}
		}
	}

	switch {
	case critical:
		response.Status = "unavailable"
	case degraded:
		response.Status = "degraded"
	default:
		response.Status = "ready"
	}
	return response
}
