package pg

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
)

type accountRepo struct {
	db            DB
	defaultScopes []string
}

const accountColumns = `id, username, email, password_hash, two_factor_enabled, scopes, created_at`

func scanAccount(row pgx.Row) (*repository.Account, error) {
	var a repository.Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash,
		&a.TwoFactorEnabled, &a.Scopes, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*repository.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE id = $1`, id))
}

func (r *accountRepo) GetByUsername(ctx context.Context, username string) (*repository.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE username = $1`, username))
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*repository.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE lower(email) = lower($1)`, email))
}

func (r *accountRepo) GetOrCreateByEmail(ctx context.Context, email string) (*repository.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, repository.ErrInvalidInput
	}

	acc, err := r.GetByEmail(ctx, email)
	if err == nil {
		return acc, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	// El email completo sirve de username: es único por constraint y evita
	// colisiones entre cuentas de directorio con el mismo local part.
	row := r.db.QueryRow(ctx, `
		INSERT INTO account (username, email, scopes)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
		RETURNING `+accountColumns,
		email, email, r.scopesOrEmpty())
	acc, err = scanAccount(row)
	if err == nil {
		return acc, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	// Carrera con otro create concurrente: la fila ya existe.
	return r.GetByEmail(ctx, email)
}

func (r *accountRepo) Create(ctx context.Context, input repository.CreateAccountInput) (*repository.Account, error) {
	if input.Username == "" || input.Email == "" {
		return nil, repository.ErrInvalidInput
	}
	scopes := input.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO account (username, email, password_hash, scopes)
		VALUES ($1, $2, $3, $4)
		RETURNING `+accountColumns,
		input.Username, strings.ToLower(input.Email), input.PasswordHash, scopes)
	acc, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return acc, nil
}

func (r *accountRepo) SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE account SET two_factor_enabled = $2 WHERE id = $1`, id, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepo) SetPasswordHash(ctx context.Context, id string, hash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE account SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepo) scopesOrEmpty() []string {
	if r.defaultScopes == nil {
		return []string{}
	}
	return r.defaultScopes
}
