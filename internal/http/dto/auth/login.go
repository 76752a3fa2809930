package auth

// LoginRequest representa la solicitud de login por password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ConfigResponse es la configuración pública de un proveedor para el
// frontend (client IDs y redirect URI, nunca secretos).
type ConfigResponse struct {
	Provider    string   `json:"provider"`
	Enabled     bool     `json:"enabled"`
	ClientIDs   []string `json:"client_ids,omitempty"`
	RedirectURI string   `json:"redirect_uri,omitempty"`
}
