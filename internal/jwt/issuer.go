// Package jwt emite y valida los bearer tokens firmados del servicio.
//
// Hay dos clases de token: el token completo (scopes reales de la cuenta,
// TTL configurable) y el token "pending-2fa" (TTL corto fijo, scope centinela
// único) que solo sirve para completar el segundo factor.
package jwt

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// ScopePending2FA es el scope centinela de los tokens emitidos tras un primer
// factor correcto cuando falta el segundo. Debe ser disjunto de todo scope
// privilegiado; Claims.Pending2FA es el único punto de chequeo.
const ScopePending2FA = "pending-2fa"

// DefaultAccessTTL es el TTL por defecto de un token completo.
const DefaultAccessTTL = 15 * time.Minute

// PendingTTL es el TTL fijo de un token pending-2fa, alineado con la vida
// del código OTP que lo acompaña.
const PendingTTL = 10 * time.Minute

// Issuer firma tokens con la clave Ed25519 inyectada.
type Issuer struct {
	Iss       string
	KID       string
	AccessTTL time.Duration

	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewIssuer crea un issuer con la clave dada. El KID se deriva del hash de
// la clave pública para que rotaciones futuras sean detectables.
func NewIssuer(iss string, key ed25519.PrivateKey) *Issuer {
	pub := key.Public().(ed25519.PublicKey)
	sum := sha256.Sum256(pub)
	return &Issuer{
		Iss:       iss,
		KID:       base64.RawURLEncoding.EncodeToString(sum[:6]),
		AccessTTL: DefaultAccessTTL,
		priv:      key,
		pub:       pub,
	}
}

// IssueAccess emite un token completo con los scopes reales de la cuenta.
func (i *Issuer) IssueAccess(sub, username, email string, scopes []string) (string, time.Time, error) {
	return i.issue(sub, username, email, scopes, i.AccessTTL)
}

// IssuePending2FA emite un token restringido con el scope centinela único.
func (i *Issuer) IssuePending2FA(sub, username, email string) (string, time.Time, error) {
	return i.issue(sub, username, email, []string{ScopePending2FA}, PendingTTL)
}

func (i *Issuer) issue(sub, username, email string, scopes []string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)

	if scopes == nil {
		scopes = []string{}
	}
	claims := jwtv5.MapClaims{
		"iss":                i.Iss,
		"sub":                sub,
		"preferred_username": username,
		"email":              email,
		"scopes":             scopes,
		"iat":                now.Unix(),
		"nbf":                now.Unix(),
		"exp":                exp.Unix(),
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = i.KID
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.priv)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
