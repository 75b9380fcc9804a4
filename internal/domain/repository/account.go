package repository

import (
	"context"
	"time"
)

// Account representa una cuenta del servicio de documentos.
type Account struct {
	ID               string
	Username         string
	Email            string
	PasswordHash     string
	TwoFactorEnabled bool
	Scopes           []string
	CreatedAt        time.Time
}

// CreateAccountInput contiene los datos para crear una cuenta.
type CreateAccountInput struct {
	Username     string
	Email        string
	PasswordHash string
	Scopes       []string
}

// AccountRepository define operaciones de lectura sobre cuentas más las
// mutaciones puntuales que este servicio posee (flag de segundo factor,
// hash de credencial). El resto del modelo de cuenta pertenece al core
// de documentos.
type AccountRepository interface {
	// GetByID busca una cuenta por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetByUsername busca una cuenta por username.
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// GetByEmail busca una cuenta por email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetOrCreateByEmail resuelve una cuenta por email, creándola si no
	// existe (login por directorio). Idempotente.
	GetOrCreateByEmail(ctx context.Context, email string) (*Account, error)

	// Create crea una cuenta nueva. Retorna ErrConflict si username o
	// email ya existen.
	Create(ctx context.Context, input CreateAccountInput) (*Account, error)

	// SetTwoFactorEnabled actualiza el flag de segundo factor.
	SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error

	// SetPasswordHash reemplaza el hash de credencial de la cuenta.
	SetPasswordHash(ctx context.Context, id string, hash string) error
}
