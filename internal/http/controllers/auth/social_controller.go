package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	dto "github.com/oscarho2/giglink-identity/internal/http/dto/auth"
	httperrors "github.com/oscarho2/giglink-identity/internal/http/errors"
	"github.com/oscarho2/giglink-identity/internal/http/middlewares"
	svc "github.com/oscarho2/giglink-identity/internal/http/services/auth"
	"github.com/oscarho2/giglink-identity/internal/identity"
	"github.com/oscarho2/giglink-identity/internal/identity/provider"
	"github.com/oscarho2/giglink-identity/internal/observability/logger"
	"github.com/oscarho2/giglink-identity/internal/store"
)

// SocialController maneja el flujo de sign-in social y vinculación.
type SocialController struct {
	service svc.SocialService
}

// NewSocialController crea el controller social.
func NewSocialController(service svc.SocialService) *SocialController {
	return &SocialController{service: service}
}

// SignIn maneja POST /v1/auth/social/{provider}.
func (c *SocialController) SignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SocialController.SignIn"))

	var req dto.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	providerName := chi.URLParam(r, "provider")
	result, err := c.service.SignIn(ctx, providerName, req)
	if err != nil {
		handleAuthError(w, err, log)
		return
	}

	if result.LinkRequired {
		writeJSON(w, http.StatusOK, dto.LinkRequiredResponse{
			Status:    "link_required",
			LinkToken: result.LinkToken,
			Email:     result.Email,
			ExpiresIn: int64(result.LinkExpires.Seconds()),
		})
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(result))
}

// ConfirmLink maneja POST /v1/auth/social/link/confirm.
func (c *SocialController) ConfirmLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SocialController.ConfirmLink"))

	var req dto.ConfirmLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	result, err := c.service.ConfirmLink(ctx, req)
	if err != nil {
		handleAuthError(w, err, log)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(result))
}

// Link maneja POST /v1/auth/social/link (requiere sesión).
func (c *SocialController) Link(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SocialController.Link"))

	accountID := middlewares.GetAccountID(ctx)
	if accountID == "" {
		httperrors.WriteError(w, httperrors.ErrTokenMissing)
		return
	}

	var req dto.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	acct, err := c.service.Link(ctx, accountID, req.Provider, req)
	if err != nil {
		handleAuthError(w, err, log)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse(acct))
}

// Config maneja GET /v1/auth/social/{provider}/config.
func (c *SocialController) Config(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SocialController.Config"))

	cfg, err := c.service.ProviderConfig(ctx, chi.URLParam(r, "provider"))
	if err != nil {
		handleAuthError(w, err, log)
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

func sessionResponse(result *svc.SignInResult) dto.SessionResponse {
	return dto.SessionResponse{
		Status:       "ok",
		SessionToken: result.SessionToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(result.ExpiresAt).Seconds()),
		Created:      result.Created,
		Account:      accountResponse(result.Account),
	}
}

func accountResponse(acct *store.Account) dto.AccountResponse {
	providers := acct.LinkedProviders
	if providers == nil {
		providers = []string{}
	}
	return dto.AccountResponse{
		ID:              acct.ID,
		Email:           acct.Email,
		DisplayName:     acct.DisplayName,
		LinkedProviders: providers,
		HasPassword:     acct.HasPassword(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleAuthError mapea errores de dominio a AppErrors estables.
// Solo los fallos de infraestructura se loguean a nivel error; el resto
// son resultados esperados del flujo.
func handleAuthError(w http.ResponseWriter, err error, log *zap.Logger) {
	switch {
	case errors.Is(err, provider.ErrUnsupportedProvider):
		httperrors.WriteError(w, httperrors.ErrUnsupportedProvider)
	case errors.Is(err, svc.ErrCredentialMissing):
		httperrors.WriteError(w, httperrors.ErrMissingFields)
	case errors.Is(err, svc.ErrCodeNotSupported):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("authorization code flow not supported for this provider"))
	case errors.Is(err, identity.ErrMalformedToken):
		httperrors.WriteError(w, httperrors.ErrTokenInvalid.WithDetail("malformed token"))
	case errors.Is(err, identity.ErrUnknownSigningKey):
		log.Warn("unknown signing key", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrTokenInvalid.WithDetail("unknown signing key"))
	case errors.Is(err, identity.ErrTokenVerificationFailed):
		log.Warn("token verification failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrTokenInvalid)
	case errors.Is(err, identity.ErrProviderTimeout):
		log.Error("provider timeout", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrProviderTimeout)
	case errors.Is(err, identity.ErrProviderExchangeFailed):
		log.Error("provider exchange failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrProviderUnavailable)
	case errors.Is(err, identity.ErrMissingEmailClaim):
		httperrors.WriteError(w, httperrors.ErrMissingEmail)
	case errors.Is(err, identity.ErrLinkTokenExpired):
		httperrors.WriteError(w, httperrors.ErrLinkTokenExpired)
	case errors.Is(err, identity.ErrLinkTokenInvalid):
		httperrors.WriteError(w, httperrors.ErrLinkTokenInvalid)
	case errors.Is(err, identity.ErrEmailMismatch):
		httperrors.WriteError(w, httperrors.ErrEmailMismatch)
	case errors.Is(err, identity.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, identity.ErrAccountAlreadyExists):
		httperrors.WriteError(w, httperrors.ErrEmailAlreadyInUse)
	case store.IsNotFound(err):
		httperrors.WriteError(w, httperrors.ErrAccountNotFound)
	default:
		log.Error("unexpected auth error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
