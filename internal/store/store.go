// Package store define el acceso a persistencia del servicio y sus adapters.
package store

import (
	"context"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
)

// Store agrupa los repositorios del dominio. Adapters: pg (producción) y
// memory (dev/tests).
type Store interface {
	Accounts() repository.AccountRepository
	OTPs() repository.OTPRepository
	ResetTokens() repository.ResetTokenRepository

	// Ping verifica que el backend esté accesible.
	Ping(ctx context.Context) error

	// Close libera las conexiones del adapter.
	Close()
}
