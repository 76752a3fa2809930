// Package auth contiene DTOs para los endpoints de autenticación.
package auth

// SignInRequest representa la solicitud de sign-in social.
// Google manda id_token; Apple (flujo web) manda code + redirect_uri
// y el servicio lo canjea por el id_token.
type SignInRequest struct {
	IDToken     string `json:"id_token,omitempty"`
	Code        string `json:"code,omitempty"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// AccountResponse es la vista pública de una cuenta.
type AccountResponse struct {
	ID              string   `json:"id"`
	Email           string   `json:"email"`
	DisplayName     string   `json:"display_name,omitempty"`
	LinkedProviders []string `json:"linked_providers"`
	HasPassword     bool     `json:"has_password"`
}

// SessionResponse representa un sign-in resuelto con sesión emitida.
type SessionResponse struct {
	Status       string          `json:"status"` // "ok"
	SessionToken string          `json:"session_token"`
	TokenType    string          `json:"token_type"` // "Bearer"
	ExpiresIn    int64           `json:"expires_in"` // segundos
	Created      bool            `json:"created"`    // true si la cuenta se creó en este sign-in
	Account      AccountResponse `json:"account"`
}

// LinkRequiredResponse se devuelve cuando el email ya pertenece a una
// cuenta sin ese proveedor vinculado y hace falta confirmación.
type LinkRequiredResponse struct {
	Status    string `json:"status"` // "link_required"
	LinkToken string `json:"link_token"`
	Email     string `json:"email"`
	ExpiresIn int64  `json:"expires_in"` // segundos
}

// ConfirmLinkRequest confirma la vinculación probando posesión de la
// cuenta existente con sus credenciales de primera partida.
type ConfirmLinkRequest struct {
	LinkToken string `json:"link_token"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LinkRequest vincula un proveedor a la cuenta de la sesión actual.
type LinkRequest struct {
	Provider    string `json:"provider"`
	IDToken     string `json:"id_token,omitempty"`
	Code        string `json:"code,omitempty"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}
