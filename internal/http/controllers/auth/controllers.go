// Package auth contiene los controllers de autenticación.
package auth

import svc "github.com/oscarho2/giglink-identity/internal/http/services/auth"

// Controllers agrupa todos los controllers del dominio auth.
type Controllers struct {
	Social *SocialController
	Login  *LoginController
}

// NewControllers crea el agregador de controllers auth.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Social: NewSocialController(s.Social),
		Login:  NewLoginController(s.Login),
	}
}
