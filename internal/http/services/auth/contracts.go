// Package auth contiene contracts para servicios de autenticación.
package auth

import (
	"context"

	"github.com/dropDatabas3/paperauth/internal/auth/oidc"
	dto "github.com/dropDatabas3/paperauth/internal/http/dto/auth"
)

// LoginService define las operaciones de emisión de tokens.
type LoginService interface {
	// Login autentica credenciales con la estrategia indicada por
	// in.Provider y devuelve un token completo, o un token restringido
	// cuando falta el segundo factor.
	Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResult, error)

	// CompleteTwoFactor canjea un código de segundo factor por el token
	// completo. El accountID viene del token restringido ya verificado.
	CompleteTwoFactor(ctx context.Context, accountID, code string) (*dto.LoginResult, error)
}

// TwoFactorService define el ciclo de habilitar/deshabilitar el segundo
// factor de una cuenta.
type TwoFactorService interface {
	// SendSetupOTP emite y envía el código que confirma la activación.
	SendSetupOTP(ctx context.Context, accountID string) error

	// SendDisableOTP emite y envía el código que confirma la baja.
	SendDisableOTP(ctx context.Context, accountID string) error

	// Enable activa el segundo factor si el código de setup es válido.
	Enable(ctx context.Context, accountID, code string) error

	// Disable desactiva el segundo factor si el código de disable es válido.
	Disable(ctx context.Context, accountID, code string) error

	// Status reporta si la cuenta tiene el segundo factor activo.
	Status(ctx context.Context, accountID string) (bool, error)
}

// DirectoryClient autentica credenciales contra un directorio externo
// (LDAP). Retorna el email con el que se resuelve la cuenta local.
type DirectoryClient interface {
	Authenticate(ctx context.Context, username, password string) (email string, err error)
}

// FederatedClient intercambia un authorization code contra el proveedor
// OIDC federado. *oidc.Client lo implementa.
type FederatedClient interface {
	ExchangeCode(ctx context.Context, code string) (*oidc.TokenResponse, error)
}

// Services agrupa los servicios del dominio auth.
type Services struct {
	Login     LoginService
	TwoFactor TwoFactorService
}
