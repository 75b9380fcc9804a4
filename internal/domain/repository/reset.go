package repository

import (
	"context"
	"time"
)

// ResetToken representa un token temporal de recuperación de contraseña.
// En la base se guarda el hash del token, nunca el valor crudo; el valor
// crudo viaja solo en el email.
type ResetToken struct {
	ID        string
	AccountID string
	TokenHash string
	Used      bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ResetTokenRepository define operaciones sobre tokens de password reset.
// Mismas garantías atómicas que OTPRepository, con scope por cuenta
// (sin dimensión de propósito).
type ResetTokenRepository interface {
	// Create invalida los tokens vivos de la cuenta y persiste uno nuevo.
	Create(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) (*ResetToken, error)

	// GetActiveByHash busca un token no usado por su hash. Retorna
	// ErrNotFound si no existe o ya fue consumido. El chequeo de expiry
	// queda en el caller (defensivo, además del filtro de Consume).
	GetActiveByHash(ctx context.Context, tokenHash string) (*ResetToken, error)

	// Consume marca el token como usado y actualiza el hash de credencial
	// de la cuenta en una sola unidad de trabajo. Retorna el accountID
	// afectado, o ErrNotFound si el token no está vivo (usado, expirado o
	// inexistente, indistinguibles para el caller).
	Consume(ctx context.Context, tokenHash, newPasswordHash string) (accountID string, err error)

	// DeleteExpired elimina tokens expirados (cleanup job).
	DeleteExpired(ctx context.Context) (int, error)
}
