package auth

import (
	"net/http"

	"github.com/dropDatabas3/paperauth/internal/domain/repository"
	dto "github.com/dropDatabas3/paperauth/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/paperauth/internal/http/errors"
	"github.com/dropDatabas3/paperauth/internal/http/middlewares"
)

// VerifyController maneja el endpoint de introspección de tokens.
type VerifyController struct {
	accounts repository.AccountRepository
}

// NewVerifyController crea un nuevo controller de verificación.
func NewVerifyController(accounts repository.AccountRepository) *VerifyController {
	return &VerifyController{accounts: accounts}
}

// Verify maneja GET /verify. El token ya fue validado por los middlewares;
// acá se chequea además que la cuenta siga existiendo.
func (c *VerifyController) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := middlewares.GetClaims(ctx)
	if claims == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	if _, err := c.accounts.GetByID(ctx, claims.Subject); err != nil {
		if repository.IsNotFound(err) {
			httperrors.WriteError(w, httperrors.ErrTokenInvalid.WithDetail("account no longer exists"))
			return
		}
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	httperrors.WriteJSON(w, http.StatusOK, dto.VerifyResponse{
		Subject:           claims.Subject,
		PreferredUsername: claims.PreferredUsername,
		Email:             claims.Email,
		Scopes:            claims.Scopes,
	})
}
