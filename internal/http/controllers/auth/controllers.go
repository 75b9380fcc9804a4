// Package auth contiene los controllers de autenticación.
package auth

import (
	"github.com/dropDatabas3/paperauth/internal/domain/repository"
	svc "github.com/dropDatabas3/paperauth/internal/http/services/auth"
	"github.com/dropDatabas3/paperauth/internal/pwreset"
)

// Controllers agrupa todos los controllers del dominio auth.
type Controllers struct {
	Token     *TokenController
	TwoFactor *TwoFactorController
	Reset     *ResetController
	Verify    *VerifyController
}

// NewControllers crea el agregador de controllers auth.
func NewControllers(s svc.Services, reset *pwreset.Service, accounts repository.AccountRepository) *Controllers {
	return &Controllers{
		Token:     NewTokenController(s.Login),
		TwoFactor: NewTwoFactorController(s.Login, s.TwoFactor),
		Reset:     NewResetController(reset),
		Verify:    NewVerifyController(accounts),
	}
}
