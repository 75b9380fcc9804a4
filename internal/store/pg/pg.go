// Package pg implementa store.Store sobre PostgreSQL usando pgx.
//
// Las garantías de concurrencia del dominio descansan en semántica
// compare-and-set a nivel de storage (UPDATE ... WHERE used = FALSE) y en
// transacciones para las unidades invalidar+insertar y consumir+actualizar,
// no en locks de proceso: pueden correr varias instancias del servidor
// contra la misma base.
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
	"github.com/dropDatabas3/paperauth/internal/store"
)

// DB es el subconjunto de pgxpool.Pool que usan los repositorios.
// pgxmock lo satisface en tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store implementa store.Store sobre una conexión PostgreSQL.
type Store struct {
	db DB

	accounts *accountRepo
	otps     *otpRepo
	resets   *resetTokenRepo
}

var _ store.Store = (*Store)(nil)

// Options configura el adapter.
type Options struct {
	// DefaultScopes son los scopes asignados a cuentas creadas vía
	// get-or-create (login por directorio).
	DefaultScopes []string
}

// New crea un Store sobre una conexión existente (pool real o mock).
func New(db DB, opts Options) *Store {
	return &Store{
		db:       db,
		accounts: &accountRepo{db: db, defaultScopes: opts.DefaultScopes},
		otps:     &otpRepo{db: db},
		resets:   &resetTokenRepo{db: db},
	}
}

// Open abre un pool contra el DSN dado y verifica conectividad.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return New(pool, opts), nil
}

func (s *Store) Accounts() repository.AccountRepository    { return s.accounts }
func (s *Store) OTPs() repository.OTPRepository            { return s.otps }
func (s *Store) ResetTokens() repository.ResetTokenRepository { return s.resets }

// DB expone la conexión subyacente (migraciones, herramientas).
func (s *Store) DB() DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.Ping(ctx) }
func (s *Store) Close()                         { s.db.Close() }
