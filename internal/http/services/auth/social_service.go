package auth

import (
	"context"
	"errors"
	"time"

	emailpkg "github.com/oscarho2/giglink-identity/internal/email"
	dto "github.com/oscarho2/giglink-identity/internal/http/dto/auth"
	"github.com/oscarho2/giglink-identity/internal/identity"
	"github.com/oscarho2/giglink-identity/internal/identity/provider"
	"github.com/oscarho2/giglink-identity/internal/identity/resolver"
	"github.com/oscarho2/giglink-identity/internal/metrics"
	"github.com/oscarho2/giglink-identity/internal/observability/logger"
	"github.com/oscarho2/giglink-identity/internal/session"
	"github.com/oscarho2/giglink-identity/internal/store"
)

// SocialService define las operaciones del flujo de sign-in social.
type SocialService interface {
	// SignIn verifica la credencial del provider y resuelve la cuenta.
	SignIn(ctx context.Context, providerName string, req dto.SignInRequest) (*SignInResult, error)

	// ConfirmLink canjea un link token + credenciales y emite sesión.
	ConfirmLink(ctx context.Context, req dto.ConfirmLinkRequest) (*SignInResult, error)

	// Link vincula un provider a la cuenta ya autenticada.
	Link(ctx context.Context, accountID, providerName string, req dto.LinkRequest) (*store.Account, error)

	// ProviderConfig devuelve la configuración pública del provider.
	ProviderConfig(ctx context.Context, providerName string) (*dto.ConfigResponse, error)
}

// ProviderPublicConfig es la vista publicable de un provider configurado.
type ProviderPublicConfig struct {
	Enabled     bool
	ClientIDs   []string
	RedirectURI string
}

// Deps contiene las dependencias de los services de auth.
type Deps struct {
	Registry *provider.Registry
	Resolver *resolver.Resolver
	Sessions *session.Issuer
	Notifier emailpkg.Notifier

	LinkTTL time.Duration

	PublicConfig map[identity.Provider]ProviderPublicConfig
}

// SignInResult es el resultado interno del service: sesión emitida o
// confirmación de vinculación pendiente.
type SignInResult struct {
	LinkRequired bool

	// Con LinkRequired=false:
	SessionToken string
	ExpiresAt    time.Time
	Created      bool
	Account      *store.Account

	// Con LinkRequired=true:
	LinkToken   string
	Email       string
	LinkExpires time.Duration
}

// Errores del service.
var (
	ErrCredentialMissing = errors.New("id_token or code is required")
	ErrCodeNotSupported  = errors.New("authorization code flow not supported for provider")
)

type socialService struct {
	deps Deps
}

// NewSocialService crea un SocialService.
func NewSocialService(d Deps) SocialService {
	return &socialService{deps: d}
}

func (s *socialService) SignIn(ctx context.Context, providerName string, req dto.SignInRequest) (*SignInResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.social"))

	p, id, err := s.verify(ctx, providerName, req.IDToken, req.Code, req.RedirectURI)
	if err != nil {
		metrics.SignInTotal.WithLabelValues(providerName, "error").Inc()
		return nil, err
	}

	res, err := s.deps.Resolver.SignIn(ctx, *id)
	if err != nil {
		metrics.SignInTotal.WithLabelValues(string(p), "error").Inc()
		return nil, err
	}

	if res.Status == resolver.StatusLinkRequired {
		metrics.SignInTotal.WithLabelValues(string(p), "link_required").Inc()
		log.Info("link confirmation required",
			logger.Provider(string(p)),
			logger.EmailMasked(res.Email),
		)
		return &SignInResult{
			LinkRequired: true,
			LinkToken:    res.LinkToken,
			Email:        res.Email,
			LinkExpires:  s.deps.LinkTTL,
		}, nil
	}

	outcome := "session"
	if res.Created {
		outcome = "created"
	}
	metrics.SignInTotal.WithLabelValues(string(p), outcome).Inc()

	return s.issueSession(ctx, res.Account, res.Created)
}

func (s *socialService) ConfirmLink(ctx context.Context, req dto.ConfirmLinkRequest) (*SignInResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.social"))

	if req.LinkToken == "" || req.Email == "" || req.Password == "" {
		return nil, ErrCredentialMissing
	}

	acct, err := s.deps.Resolver.ConfirmLink(ctx, req.LinkToken, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	metrics.SignInTotal.WithLabelValues(lastLinked(acct), "link_confirmed").Inc()

	// Aviso de seguridad best-effort: un fallo de SMTP no aborta el login.
	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.ProviderLinked(ctx, acct.Email, lastLinked(acct)); err != nil {
			log.Warn("security notice not sent", logger.AccountID(acct.ID), logger.Err(err))
		}
	}

	return s.issueSession(ctx, acct, false)
}

func (s *socialService) Link(ctx context.Context, accountID, providerName string, req dto.LinkRequest) (*store.Account, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.social"))

	_, id, err := s.verify(ctx, providerName, req.IDToken, req.Code, req.RedirectURI)
	if err != nil {
		return nil, err
	}

	acct, err := s.deps.Resolver.LinkWithSession(ctx, accountID, *id)
	if err != nil {
		return nil, err
	}

	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.ProviderLinked(ctx, acct.Email, string(id.Provider)); err != nil {
			log.Warn("security notice not sent", logger.AccountID(acct.ID), logger.Err(err))
		}
	}
	return acct, nil
}

func (s *socialService) ProviderConfig(_ context.Context, providerName string) (*dto.ConfigResponse, error) {
	p, ok := identity.ParseProvider(providerName)
	if !ok {
		return nil, provider.ErrUnsupportedProvider
	}
	cfg, ok := s.deps.PublicConfig[p]
	if !ok {
		return &dto.ConfigResponse{Provider: string(p), Enabled: false}, nil
	}
	return &dto.ConfigResponse{
		Provider:    string(p),
		Enabled:     cfg.Enabled,
		ClientIDs:   cfg.ClientIDs,
		RedirectURI: cfg.RedirectURI,
	}, nil
}

// verify normaliza la credencial (id_token directo o code canjeable) y la
// valida con el Verifier del provider.
func (s *socialService) verify(ctx context.Context, providerName, idToken, code, redirectURI string) (identity.Provider, *identity.ExternalIdentity, error) {
	p, ok := identity.ParseProvider(providerName)
	if !ok {
		return "", nil, provider.ErrUnsupportedProvider
	}

	v, err := s.deps.Registry.Verifier(p)
	if err != nil {
		return p, nil, err
	}

	raw := idToken
	switch {
	case raw == "" && code == "":
		return p, nil, ErrCredentialMissing
	case raw == "":
		ex, ok := s.deps.Registry.Exchanger(p)
		if !ok {
			return p, nil, ErrCodeNotSupported
		}
		raw, err = ex.ExchangeCode(ctx, code, redirectURI)
		if err != nil {
			return p, nil, err
		}
	}

	id, err := v.Verify(ctx, raw)
	if err != nil {
		return p, nil, err
	}
	return p, id, nil
}

func (s *socialService) issueSession(_ context.Context, acct *store.Account, created bool) (*SignInResult, error) {
	token, expiresAt, err := s.deps.Sessions.Issue(acct.ID, acct.Email)
	if err != nil {
		return nil, err
	}
	return &SignInResult{
		SessionToken: token,
		ExpiresAt:    expiresAt,
		Created:      created,
		Account:      acct,
	}, nil
}

// lastLinked devuelve el provider linkeado más reciente, que tras un
// ConfirmLink exitoso es el que se acaba de agregar.
func lastLinked(acct *store.Account) string {
	if len(acct.LinkedProviders) == 0 {
		return "unknown"
	}
	return acct.LinkedProviders[len(acct.LinkedProviders)-1]
}
