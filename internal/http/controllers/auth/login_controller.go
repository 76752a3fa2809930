package auth

import (
	"encoding/json"
	"net/http"

	dto "github.com/oscarho2/giglink-identity/internal/http/dto/auth"
	httperrors "github.com/oscarho2/giglink-identity/internal/http/errors"
	svc "github.com/oscarho2/giglink-identity/internal/http/services/auth"
	"github.com/oscarho2/giglink-identity/internal/observability/logger"
)

// LoginController maneja el login por email+password.
type LoginController struct {
	service svc.LoginService
}

// NewLoginController crea el controller de login.
func NewLoginController(service svc.LoginService) *LoginController {
	return &LoginController{service: service}
}

// Login maneja POST /v1/auth/login.
func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Login"))

	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	result, err := c.service.Login(ctx, req)
	if err != nil {
		handleAuthError(w, err, log)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(result))
}
