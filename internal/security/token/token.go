package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

// otpRange es el rango de códigos válidos: [100000, 999999].
var otpRange = big.NewInt(900000)

// GenerateOTPCode genera un código numérico de 6 dígitos, uniforme sobre
// [100000, 999999]. rand.Int hace rejection sampling, así que no hay sesgo
// por truncado de módulo en los extremos.
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpRange)
	if err != nil {
		// Sin fuente segura de aleatoriedad no se puede emitir un secreto.
		return "", fmt.Errorf("otp code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// GenerateOpaqueToken genera un token opaco aleatorio (base64url sin padding).
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Base64URL devuelve sha256(input) en base64url sin padding (para guardar en DB).
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
