// Package pg implementa AccountRepository sobre Postgres via pgx.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oscarho2/giglink-identity/internal/store"
)

// uniqueViolation es el SQLSTATE de unique_violation.
const uniqueViolation = "23505"

type Repo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Repo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	return &Repo{pool: pool}, nil
}

// NewWithPool envuelve un pool existente (tests / wiring compartido).
func NewWithPool(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const selectAccount = `
	SELECT id::text, email, password_hash, linked_providers, display_name, email_verified, created_at
	  FROM account`

func (r *Repo) GetByEmail(ctx context.Context, email string) (*store.Account, error) {
	row := r.pool.QueryRow(ctx, selectAccount+` WHERE email = $1`, store.NormalizeEmail(email))
	return scanAccount(row)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*store.Account, error) {
	row := r.pool.QueryRow(ctx, selectAccount+` WHERE id = $1::uuid`, id)
	return scanAccount(row)
}

func (r *Repo) Create(ctx context.Context, in store.CreateAccountInput) (*store.Account, error) {
	providers := in.Providers
	if providers == nil {
		providers = []string{}
	}
	var phc *string
	if in.PasswordHash != "" {
		phc = &in.PasswordHash
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO account (email, password_hash, linked_providers, display_name, email_verified)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text, email, password_hash, linked_providers, display_name, email_verified, created_at`,
		store.NormalizeEmail(in.Email), phc, providers, in.DisplayName, in.EmailVerified,
	)
	a, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return a, nil
}

func (r *Repo) AddProvider(ctx context.Context, accountID, provider string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE account
		   SET linked_providers = array_append(linked_providers, $2)
		 WHERE id = $1::uuid
		   AND NOT ($2 = ANY(linked_providers))`,
		accountID, provider,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// o la cuenta no existe, o el provider ya estaba (idempotente)
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM account WHERE id = $1::uuid)`, accountID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return store.ErrNotFound
		}
	}
	return nil
}

func (r *Repo) SetPasswordHash(ctx context.Context, accountID, phc string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE account SET password_hash = $2 WHERE id = $1::uuid`,
		accountID, phc,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repo) Ping(ctx context.Context) error { return r.pool.Ping(ctx) }

func (r *Repo) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*store.Account, error) {
	var a store.Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.LinkedProviders, &a.DisplayName, &a.EmailVerified, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func init() {
	store.Register("postgres", func(ctx context.Context, cfg store.Config) (store.AccountRepository, error) {
		r, err := New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.Migrate {
			if err := r.Migrate(ctx); err != nil {
				_ = r.Close(ctx)
				return nil, err
			}
		}
		return r, nil
	})
}
