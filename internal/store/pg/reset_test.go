package pg

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
)

func TestResetCreate_InvalidatesThenInserts(t *testing.T) {
	st, mock := newMockStore(t)
	exp := time.Now().Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE password_reset_token SET used = TRUE").
		WithArgs("acc-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("INSERT INTO password_reset_token").
		WithArgs("acc-1", "hash-abc", exp).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).
			AddRow("tok-1", time.Now()))
	mock.ExpectCommit()

	rec, err := st.ResetTokens().Create(context.Background(), "acc-1", "hash-abc", exp)
	require.NoError(t, err)
	require.Equal(t, "tok-1", rec.ID)
	require.Equal(t, "hash-abc", rec.TokenHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetGetActiveByHash(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, account_id, token_hash, used, created_at, expires_at").
		WithArgs("hash-abc").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "account_id", "token_hash", "used", "created_at", "expires_at"}).
			AddRow("tok-1", "acc-1", "hash-abc", false, now, now.Add(time.Hour)))

	rec, err := st.ResetTokens().GetActiveByHash(context.Background(), "hash-abc")
	require.NoError(t, err)
	require.Equal(t, "acc-1", rec.AccountID)
	require.False(t, rec.Used)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetGetActiveByHash_Miss(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, account_id, token_hash, used, created_at, expires_at").
		WithArgs("hash-nope").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "account_id", "token_hash", "used", "created_at", "expires_at"}))

	_, err := st.ResetTokens().GetActiveByHash(context.Background(), "hash-nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetConsume_BurnsTokenAndUpdatesCredential(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE password_reset_token SET used = TRUE").
		WithArgs("hash-abc").
		WillReturnRows(pgxmock.NewRows([]string{"account_id"}).AddRow("acc-1"))
	mock.ExpectExec("UPDATE account SET password_hash").
		WithArgs("new-hash", "acc-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	accountID, err := st.ResetTokens().Consume(context.Background(), "hash-abc", "new-hash")
	require.NoError(t, err)
	require.Equal(t, "acc-1", accountID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetConsume_DeadTokenRollsBack(t *testing.T) {
	st, mock := newMockStore(t)

	// Token usado, expirado o inexistente: el CAS no retorna fila y la
	// credencial no se toca.
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE password_reset_token SET used = TRUE").
		WithArgs("hash-dead").
		WillReturnRows(pgxmock.NewRows([]string{"account_id"}))
	mock.ExpectRollback()

	_, err := st.ResetTokens().Consume(context.Background(), "hash-dead", "new-hash")
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetConsume_MissingAccountRollsBack(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE password_reset_token SET used = TRUE").
		WithArgs("hash-abc").
		WillReturnRows(pgxmock.NewRows([]string{"account_id"}).AddRow("acc-gone"))
	mock.ExpectExec("UPDATE account SET password_hash").
		WithArgs("new-hash", "acc-gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := st.ResetTokens().Consume(context.Background(), "hash-abc", "new-hash")
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetDeleteExpired(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM password_reset_token").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := st.ResetTokens().DeleteExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
