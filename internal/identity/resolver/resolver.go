// Package resolver decide qué hacer con una ExternalIdentity verificada:
// login directo, signup fresco, o pedir confirmación de linking.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/oscarho2/giglink-identity/internal/identity"
	"github.com/oscarho2/giglink-identity/internal/identity/linktoken"
	"github.com/oscarho2/giglink-identity/internal/observability/logger"
	"github.com/oscarho2/giglink-identity/internal/security/password"
	"github.com/oscarho2/giglink-identity/internal/store"
)

// Status es el estado terminal de un intento de sign-in.
type Status int

const (
	// StatusSession: login o signup exitoso; hay que emitir sesión.
	StatusSession Status = iota
	// StatusLinkRequired: hay cuenta local con ese email pero el provider
	// no está linkeado; el usuario debe confirmar con su password.
	StatusLinkRequired
)

// Result es la unión etiquetada de los estados terminales no-error.
// Con StatusSession, Account está poblado y Created indica signup fresco.
// Con StatusLinkRequired, LinkToken y Email están poblados.
type Result struct {
	Status    Status
	Account   *store.Account
	Created   bool
	LinkToken string
	Email     string
}

// Resolver implementa la máquina de estados de resolución de cuentas.
type Resolver struct {
	accounts store.AccountRepository
	links    *linktoken.Issuer
}

func New(accounts store.AccountRepository, links *linktoken.Issuer) *Resolver {
	return &Resolver{accounts: accounts, links: links}
}

// SignIn corre un intento de sign-in federado hasta su estado terminal.
//
// Deliberadamente conservador: una identidad de provider cuyo email coincide
// con una cuenta local existente jamás toma esa cuenta en silencio; sin el
// provider ya linkeado, el único camino es LinkRequired + confirmación con
// password.
func (r *Resolver) SignIn(ctx context.Context, id identity.ExternalIdentity) (*Result, error) {
	log := logger.From(ctx).With(logger.Component("resolver"), logger.Provider(string(id.Provider)))

	email := store.NormalizeEmail(id.Email)
	if email == "" {
		return nil, identity.ErrMissingEmailClaim
	}

	acct, err := r.accounts.GetByEmail(ctx, email)
	if err != nil && !store.IsNotFound(err) {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if acct == nil {
		// Signup fresco: el provider ya probó la propiedad del email.
		created, err := r.accounts.Create(ctx, store.CreateAccountInput{
			Email:         email,
			DisplayName:   id.DisplayName,
			EmailVerified: true,
			Providers:     []string{string(id.Provider)},
		})
		if err != nil {
			if store.IsConflict(err) {
				// Dos intentos concurrentes corrieron a crear la cuenta; el
				// unique de email es el backstop. Reintentamos como login.
				return r.retryAsLogin(ctx, id, email)
			}
			return nil, fmt.Errorf("create account: %w", err)
		}
		log.Info("account created", logger.AccountID(created.ID))
		return &Result{Status: StatusSession, Account: created, Created: true}, nil
	}

	if acct.HasProvider(string(id.Provider)) {
		// Usuario federado que vuelve.
		return &Result{Status: StatusSession, Account: acct}, nil
	}

	// Colisión de email: pedir confirmación explícita.
	token, err := r.links.Issue(id, email)
	if err != nil {
		return nil, fmt.Errorf("issue link token: %w", err)
	}
	log.Info("link confirmation required", logger.AccountID(acct.ID))
	return &Result{Status: StatusLinkRequired, LinkToken: token, Email: email}, nil
}

// retryAsLogin re-resuelve tras un ErrConflict de creación. Si la cuenta que
// ganó la carrera tiene el provider linkeado es un login normal; si no, la
// colisión se trata como cualquier otra.
func (r *Resolver) retryAsLogin(ctx context.Context, id identity.ExternalIdentity, email string) (*Result, error) {
	acct, err := r.accounts.GetByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, identity.ErrAccountAlreadyExists
		}
		return nil, fmt.Errorf("lookup account after conflict: %w", err)
	}
	if acct.HasProvider(string(id.Provider)) {
		return &Result{Status: StatusSession, Account: acct}, nil
	}
	token, err := r.links.Issue(id, email)
	if err != nil {
		return nil, fmt.Errorf("issue link token: %w", err)
	}
	return &Result{Status: StatusLinkRequired, LinkToken: token, Email: email}, nil
}

// ConfirmLink canjea un link token contra email+password y, si todo valida,
// agrega el provider a linkedProviders.
func (r *Resolver) ConfirmLink(ctx context.Context, rawToken, suppliedEmail, suppliedPassword string) (*store.Account, error) {
	log := logger.From(ctx).With(logger.Component("resolver"))

	claims, err := r.links.Redeem(rawToken)
	if err != nil {
		return nil, err
	}

	// Un link token robado/compartido no se puede canjear contra otra cuenta.
	if !strings.EqualFold(strings.TrimSpace(suppliedEmail), claims.Email) {
		return nil, identity.ErrEmailMismatch
	}

	acct, err := r.accounts.GetByEmail(ctx, claims.Email)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, identity.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if !acct.HasPassword() || !password.Verify(suppliedPassword, *acct.PasswordHash) {
		return nil, identity.ErrInvalidCredentials
	}

	provider := string(claims.Identity.Provider)
	if err := r.accounts.AddProvider(ctx, acct.ID, provider); err != nil {
		return nil, fmt.Errorf("link provider: %w", err)
	}
	if !acct.HasProvider(provider) {
		acct.LinkedProviders = append(acct.LinkedProviders, provider)
	}
	log.Info("provider linked", logger.AccountID(acct.ID), logger.Provider(provider))
	return acct, nil
}

// LinkWithSession agrega el provider de una identidad verificada a la cuenta
// que ya está autenticada. El email debe coincidir: una sesión válida no
// autoriza a colgar identidades de terceros.
func (r *Resolver) LinkWithSession(ctx context.Context, accountID string, id identity.ExternalIdentity) (*store.Account, error) {
	acct, err := r.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if store.NormalizeEmail(id.Email) != acct.Email {
		return nil, identity.ErrEmailMismatch
	}
	provider := string(id.Provider)
	if err := r.accounts.AddProvider(ctx, acct.ID, provider); err != nil {
		return nil, fmt.Errorf("link provider: %w", err)
	}
	if !acct.HasProvider(provider) {
		acct.LinkedProviders = append(acct.LinkedProviders, provider)
	}
	return acct, nil
}

// Login es el login de password de primera partida que la confirmación de
// links requiere de todos modos.
func (r *Resolver) Login(ctx context.Context, email, plainPassword string) (*store.Account, error) {
	acct, err := r.accounts.GetByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, identity.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if !acct.HasPassword() || !password.Verify(plainPassword, *acct.PasswordHash) {
		return nil, identity.ErrInvalidCredentials
	}
	return acct, nil
}
