// Package auth contiene los DTOs de los endpoints de autenticación.
package auth

// LoginRequest represents the request body for POST /token.
type LoginRequest struct {
	// Username is required for the password and ldap providers.
	Username string `json:"username"`
	// Password is required for the password and ldap providers.
	Password string `json:"password"`
	// Provider selects the credential strategy: password | ldap | oidc.
	// Empty defaults to password. Also accepted as ?provider= query param.
	Provider string `json:"provider,omitempty"`
	// Code is the authorization code for the oidc provider.
	Code string `json:"code,omitempty"`
}

// TokenResponse represents a successful token issuance.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// TwoFactorRequiredResponse signals that login must continue at /2fa/verify
// carrying the restricted token.
type TwoFactorRequiredResponse struct {
	RequiresTwoFactor bool   `json:"requires_2fa"`
	AccessToken       string `json:"access_token"`
	TokenType         string `json:"token_type"`
}

// VerifyOTPRequest represents the request body for POST /2fa/verify,
// /2fa/setup and /2fa/disable.
type VerifyOTPRequest struct {
	Code string `json:"code"`
}

// TwoFactorStatusResponse represents the response for GET /2fa/status.
type TwoFactorStatusResponse struct {
	Enabled bool `json:"enabled"`
}

// VerifyResponse represents the response for GET /verify.
type VerifyResponse struct {
	Subject           string   `json:"sub"`
	PreferredUsername string   `json:"preferred_username"`
	Email             string   `json:"email,omitempty"`
	Scopes            []string `json:"scopes,omitempty"`
}

// ForgotPasswordRequest represents the request body for
// POST /forgot-password/request.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the request body for
// POST /forgot-password/reset.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetTokenStatusResponse represents the response for
// GET /verify-reset-token.
type ResetTokenStatusResponse struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username,omitempty"`
}

// LoginResult is the internal result from LoginService.
type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
	// RequiresTwoFactor indicates AccessToken is a restricted token that
	// only authorizes completing the second factor.
	RequiresTwoFactor bool
}

// StatusResponse is a generic acknowledgement body.
type StatusResponse struct {
	Status string `json:"status"`
}
