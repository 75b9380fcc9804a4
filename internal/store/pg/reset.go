package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
)

type resetTokenRepo struct {
	db DB
}

func (r *resetTokenRepo) Create(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) (*repository.ResetToken, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		UPDATE password_reset_token SET used = TRUE
		WHERE account_id = $1 AND used = FALSE`,
		accountID); err != nil {
		return nil, err
	}

	rec := &repository.ResetToken{
		AccountID: accountID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO password_reset_token (account_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		accountID, tokenHash, expiresAt,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *resetTokenRepo) GetActiveByHash(ctx context.Context, tokenHash string) (*repository.ResetToken, error) {
	rec := &repository.ResetToken{}
	err := r.db.QueryRow(ctx, `
		SELECT id, account_id, token_hash, used, created_at, expires_at
		FROM password_reset_token
		WHERE token_hash = $1 AND used = FALSE`,
		tokenHash,
	).Scan(&rec.ID, &rec.AccountID, &rec.TokenHash, &rec.Used, &rec.CreatedAt, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Consume marca el token como usado y actualiza la credencial de la cuenta
// en la misma transacción: si el proceso cae entre ambas mutaciones no queda
// un token quemado con contraseña vieja ni una contraseña nueva con token
// reutilizable.
func (r *resetTokenRepo) Consume(ctx context.Context, tokenHash, newPasswordHash string) (string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var accountID string
	err = tx.QueryRow(ctx, `
		UPDATE password_reset_token SET used = TRUE
		WHERE token_hash = $1 AND used = FALSE AND expires_at > now()
		RETURNING account_id`,
		tokenHash,
	).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE account SET password_hash = $1 WHERE id = $2`,
		newPasswordHash, accountID)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 0 {
		return "", repository.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return accountID, nil
}

func (r *resetTokenRepo) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM password_reset_token WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
