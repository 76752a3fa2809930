// Package auth contiene los services de autenticación: la capa que
// orquesta verifiers, resolver y emisión de sesión por debajo de los
// controllers HTTP.
package auth

// Services agrupa todos los services del dominio auth.
type Services struct {
	Social SocialService
	Login  LoginService
}

// NewServices crea el agregador de services auth.
func NewServices(d Deps) Services {
	return Services{
		Social: NewSocialService(d),
		Login:  NewLoginService(d),
	}
}
