package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Razones de invalidez de un token. El caller decide qué expone: hacia
// afuera todas colapsan en 401, hacia los logs se conserva la específica.
var (
	ErrMalformed      = errors.New("jwt: malformed token")
	ErrBadSignature   = errors.New("jwt: invalid signature")
	ErrExpired        = errors.New("jwt: token expired")
	ErrMissingSubject = errors.New("jwt: missing subject")
)

// Claims son los claims que este servicio emite y entiende.
type Claims struct {
	Subject           string
	PreferredUsername string
	Email             string
	Scopes            []string
	ExpiresAt         time.Time
}

// Pending2FA reporta si el token es de clase pending-2fa. Todo chequeo de
// autorización pasa por acá: un token pending nunca habilita una operación
// privilegiada.
func (c *Claims) Pending2FA() bool {
	for _, s := range c.Scopes {
		if s == ScopePending2FA {
			return true
		}
	}
	return false
}

// Verify valida firma y estructura del token y retorna sus claims.
// No consulta persistencia: la existencia de la cuenta es responsabilidad
// del caller cuando corresponda.
func (i *Issuer) Verify(token string) (*Claims, error) {
	parsed, err := jwtv5.Parse(token,
		func(t *jwtv5.Token) (any, error) { return i.pub, nil },
		jwtv5.WithValidMethods([]string{"EdDSA"}),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwtv5.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwtv5.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		default:
			return nil, ErrMalformed
		}
	}

	mc, ok := parsed.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrMalformed
	}

	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSubject
	}

	c := &Claims{Subject: sub}
	c.PreferredUsername, _ = mc["preferred_username"].(string)
	c.Email, _ = mc["email"].(string)
	if raw, ok := mc["scopes"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				c.Scopes = append(c.Scopes, s)
			}
		}
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}
