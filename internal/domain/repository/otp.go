package repository

import (
	"context"
	"time"
)

// OTPPurpose indica la razón por la que se emitió un código.
type OTPPurpose string

const (
	OTPPurposeLogin   OTPPurpose = "login"
	OTPPurposeSetup   OTPPurpose = "setup"
	OTPPurposeDisable OTPPurpose = "disable"
)

// Valid reporta si el propósito es uno de los conocidos.
func (p OTPPurpose) Valid() bool {
	switch p {
	case OTPPurposeLogin, OTPPurposeSetup, OTPPurposeDisable:
		return true
	}
	return false
}

// OneTimeCode representa un código de un solo uso ligado a (cuenta, propósito).
type OneTimeCode struct {
	ID        string
	AccountID string
	Code      string
	Purpose   OTPPurpose
	Used      bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// OTPRepository define operaciones sobre códigos de un solo uso.
//
// Las implementaciones deben garantizar dos unidades atómicas:
//   - Create: invalidar todos los códigos vivos del scope (account, purpose)
//     e insertar el nuevo en la misma unidad de trabajo, de modo que nunca
//     existan dos códigos válidos simultáneos para el mismo scope.
//   - Consume: localizar-verificar-marcar como un solo compare-and-set
//     (update guardado por used = false), de modo que dos verificaciones
//     concurrentes del mismo código no puedan tener éxito ambas.
type OTPRepository interface {
	// Create invalida los códigos vivos del scope y persiste uno nuevo.
	Create(ctx context.Context, accountID, code string, purpose OTPPurpose, expiresAt time.Time) (*OneTimeCode, error)

	// Consume marca como usado el código que coincide con
	// (accountID, code, purpose, used=false, no expirado). Retorna
	// ErrNotFound si no hay coincidencia viva; el caller no puede
	// distinguir código incorrecto de código ya consumido o expirado.
	Consume(ctx context.Context, accountID, code string, purpose OTPPurpose) error

	// Burn marca un código como usado sin verificación (delivery fallido).
	Burn(ctx context.Context, id string) error

	// CountActive retorna cuántos códigos vivos hay para el scope.
	CountActive(ctx context.Context, accountID string, purpose OTPPurpose) (int, error)

	// DeleteExpired elimina códigos con expires_at en el pasado, usados o
	// no (cleanup job). Retorna el número de filas eliminadas.
	DeleteExpired(ctx context.Context) (int, error)
}
