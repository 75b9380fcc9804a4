package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock, Options{}), mock
}

func TestOTPCreate_InvalidatesThenInserts(t *testing.T) {
	st, mock := newMockStore(t)
	exp := time.Now().Add(10 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE one_time_code SET used = TRUE").
		WithArgs("acc-1", "login").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("INSERT INTO one_time_code").
		WithArgs("acc-1", "123456", "login", exp).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).
			AddRow("otp-1", time.Now()))
	mock.ExpectCommit()

	rec, err := st.OTPs().Create(context.Background(), "acc-1", "123456", repository.OTPPurposeLogin, exp)
	require.NoError(t, err)
	require.Equal(t, "otp-1", rec.ID)
	require.Equal(t, repository.OTPPurposeLogin, rec.Purpose)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPCreate_RollsBackOnInsertFailure(t *testing.T) {
	st, mock := newMockStore(t)
	exp := time.Now().Add(10 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE one_time_code SET used = TRUE").
		WithArgs("acc-1", "login").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("INSERT INTO one_time_code").
		WithArgs("acc-1", "123456", "login", exp).
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	_, err := st.OTPs().Create(context.Background(), "acc-1", "123456", repository.OTPPurposeLogin, exp)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPCreate_RejectsUnknownPurpose(t *testing.T) {
	st, _ := newMockStore(t)
	_, err := st.OTPs().Create(context.Background(), "acc-1", "123456", repository.OTPPurpose("bogus"), time.Now())
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestOTPConsume_Hit(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE one_time_code SET used = TRUE").
		WithArgs("acc-1", "123456", "login").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("otp-1"))

	err := st.OTPs().Consume(context.Background(), "acc-1", "123456", repository.OTPPurposeLogin)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPConsume_MissReturnsNotFound(t *testing.T) {
	st, mock := newMockStore(t)

	// Código incorrecto, ya usado o expirado: el CAS no matchea fila alguna.
	mock.ExpectQuery("UPDATE one_time_code SET used = TRUE").
		WithArgs("acc-1", "999999", "login").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	err := st.OTPs().Consume(context.Background(), "acc-1", "999999", repository.OTPPurposeLogin)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPBurn(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("UPDATE one_time_code SET used = TRUE WHERE id").
		WithArgs("otp-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, st.OTPs().Burn(context.Background(), "otp-1"))

	mock.ExpectExec("UPDATE one_time_code SET used = TRUE WHERE id").
		WithArgs("otp-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, st.OTPs().Burn(context.Background(), "otp-2"), repository.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPCountActive(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT count").
		WithArgs("acc-1", "setup").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	n, err := st.OTPs().CountActive(context.Background(), "acc-1", repository.OTPPurposeSetup)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPDeleteExpired(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM one_time_code").
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := st.OTPs().DeleteExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
