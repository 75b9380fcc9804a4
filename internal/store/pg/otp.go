package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
)

type otpRepo struct {
	db DB
}

// Create invalida los códigos vivos del scope e inserta el nuevo en una sola
// transacción: dos creates concurrentes para el mismo (cuenta, propósito)
// nunca dejan dos códigos válidos a la vez.
func (r *otpRepo) Create(ctx context.Context, accountID, code string, purpose repository.OTPPurpose, expiresAt time.Time) (*repository.OneTimeCode, error) {
	if !purpose.Valid() {
		return nil, repository.ErrInvalidInput
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		UPDATE one_time_code SET used = TRUE
		WHERE account_id = $1 AND purpose = $2 AND used = FALSE`,
		accountID, string(purpose)); err != nil {
		return nil, err
	}

	rec := &repository.OneTimeCode{
		AccountID: accountID,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: expiresAt,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO one_time_code (account_id, code, purpose, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		accountID, code, string(purpose), expiresAt,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// Consume es el compare-and-set de verificación: el filtro used = FALSE
// serializa verificaciones concurrentes del mismo código (solo una fila
// gana el UPDATE), y el filtro de expiry hace que un código vencido falle
// sin consumirse.
func (r *otpRepo) Consume(ctx context.Context, accountID, code string, purpose repository.OTPPurpose) error {
	var id string
	err := r.db.QueryRow(ctx, `
		UPDATE one_time_code SET used = TRUE
		WHERE account_id = $1 AND code = $2 AND purpose = $3
		  AND used = FALSE AND expires_at > now()
		RETURNING id`,
		accountID, code, string(purpose),
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *otpRepo) Burn(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE one_time_code SET used = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *otpRepo) CountActive(ctx context.Context, accountID string, purpose repository.OTPPurpose) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM one_time_code
		WHERE account_id = $1 AND purpose = $2
		  AND used = FALSE AND expires_at > now()`,
		accountID, string(purpose),
	).Scan(&n)
	return n, err
}

func (r *otpRepo) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM one_time_code WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
