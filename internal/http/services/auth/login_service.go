package auth

import (
	"context"

	dto "github.com/oscarho2/giglink-identity/internal/http/dto/auth"
	"github.com/oscarho2/giglink-identity/internal/metrics"
)

// LoginService define el login de primera partida por email+password.
type LoginService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*SignInResult, error)
}

type loginService struct {
	deps Deps
}

// NewLoginService crea un LoginService.
func NewLoginService(d Deps) LoginService {
	return &loginService{deps: d}
}

func (s *loginService) Login(ctx context.Context, req dto.LoginRequest) (*SignInResult, error) {
	if req.Email == "" || req.Password == "" {
		return nil, ErrCredentialMissing
	}

	acct, err := s.deps.Resolver.Login(ctx, req.Email, req.Password)
	if err != nil {
		metrics.SignInTotal.WithLabelValues("password", "error").Inc()
		return nil, err
	}

	metrics.SignInTotal.WithLabelValues("password", "session").Inc()

	token, expiresAt, err := s.deps.Sessions.Issue(acct.ID, acct.Email)
	if err != nil {
		return nil, err
	}
	return &SignInResult{
		SessionToken: token,
		ExpiresAt:    expiresAt,
		Account:      acct,
	}, nil
}
