// Package memory implementa AccountRepository en memoria (dev / tests).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oscarho2/giglink-identity/internal/store"
)

type Repo struct {
	mu      sync.RWMutex
	byEmail map[string]*store.Account
	byID    map[string]*store.Account
}

func New() *Repo {
	return &Repo{
		byEmail: make(map[string]*store.Account),
		byID:    make(map[string]*store.Account),
	}
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*store.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byEmail[store.NormalizeEmail(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(a), nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*store.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(a), nil
}

func (r *Repo) Create(ctx context.Context, in store.CreateAccountInput) (*store.Account, error) {
	email := store.NormalizeEmail(in.Email)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[email]; exists {
		return nil, store.ErrConflict
	}
	a := &store.Account{
		ID:              uuid.NewString(),
		Email:           email,
		LinkedProviders: append([]string{}, in.Providers...),
		DisplayName:     in.DisplayName,
		EmailVerified:   in.EmailVerified,
		CreatedAt:       time.Now().UTC(),
	}
	if in.PasswordHash != "" {
		phc := in.PasswordHash
		a.PasswordHash = &phc
	}
	r.byEmail[email] = a
	r.byID[a.ID] = a
	return clone(a), nil
}

func (r *Repo) AddProvider(ctx context.Context, accountID, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok {
		return store.ErrNotFound
	}
	if !a.HasProvider(provider) {
		a.LinkedProviders = append(a.LinkedProviders, provider)
	}
	return nil
}

func (r *Repo) SetPasswordHash(ctx context.Context, accountID, phc string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok {
		return store.ErrNotFound
	}
	a.PasswordHash = &phc
	return nil
}

func (r *Repo) Ping(ctx context.Context) error  { return nil }
func (r *Repo) Close(ctx context.Context) error { return nil }

func clone(a *store.Account) *store.Account {
	out := *a
	out.LinkedProviders = append([]string{}, a.LinkedProviders...)
	if a.PasswordHash != nil {
		phc := *a.PasswordHash
		out.PasswordHash = &phc
	}
	return &out
}

func init() {
	store.Register("memory", func(ctx context.Context, cfg store.Config) (store.AccountRepository, error) {
		return New(), nil
	})
}
