// Package store define el repositorio de cuentas y la factory de drivers.
//
// Soporta:
//   - mongo (el store nativo de GigLink)
//   - postgres
//   - memory (dev / tests)
package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Account es la cuenta local de GigLink vista por el flujo de identidad.
// El email se guarda lowercased; la unicidad case-insensitive la garantiza
// el driver (índice único sobre el email normalizado).
type Account struct {
	ID              string
	Email           string
	PasswordHash    *string // nil para cuentas solo-federadas
	LinkedProviders []string
	DisplayName     string
	EmailVerified   bool
	CreatedAt       time.Time
}

// HasProvider reporta si la cuenta ya tiene linkeado el provider.
func (a *Account) HasProvider(provider string) bool {
	for _, p := range a.LinkedProviders {
		if p == provider {
			return true
		}
	}
	return false
}

// HasPassword reporta si la cuenta tiene credencial de password.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// CreateAccountInput son los datos para crear una cuenta nueva.
type CreateAccountInput struct {
	Email         string
	PasswordHash  string // vacío para signup federado
	DisplayName   string
	EmailVerified bool
	Providers     []string
}

// AccountRepository define las operaciones de persistencia que necesita el
// flujo: lookup, create y el add-provider atómico.
type AccountRepository interface {
	// GetByEmail busca por email (case-insensitive). ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByID busca por ID. ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Account, error)

	// Create crea una cuenta. ErrConflict si el email ya existe.
	Create(ctx context.Context, in CreateAccountInput) (*Account, error)

	// AddProvider agrega el provider al set linkedProviders de forma
	// atómica e idempotente. ErrNotFound si la cuenta no existe.
	AddProvider(ctx context.Context, accountID, provider string) error

	// SetPasswordHash fija el hash de password (seeding / CLI).
	SetPasswordHash(ctx context.Context, accountID, phc string) error

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close libera recursos del driver.
	Close(ctx context.Context) error
}

// Errores del repositorio.
var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: conflict")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// NormalizeEmail aplica la normalización que comparten todos los drivers.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
