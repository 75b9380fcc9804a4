// Package oidc implementa el cliente contra el proveedor OIDC federado.
// El flujo delega por completo en el upstream: se intercambia el
// authorization code por el access token del proveedor y ese token es el
// que recibe el cliente final.
package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrExchangeRejected indica que el proveedor rechazó el intercambio del
// authorization code.
var ErrExchangeRejected = errors.New("oidc: code exchange rejected")

type discoveryDoc struct {
	Issuer        string `json:"issuer"`
	AuthEndpoint  string `json:"authorization_endpoint"`
	TokenEndpoint string `json:"token_endpoint"`
	JWKSURI       string `json:"jwks_uri"`
}

// TokenResponse es la respuesta del token endpoint del proveedor.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// Client habla con un proveedor OIDC vía su documento de discovery.
type Client struct {
	IssuerURL    string // raíz del proveedor; discovery en /.well-known/openid-configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string

	http *http.Client

	mu    sync.RWMutex
	disc  *discoveryDoc
	discU time.Time
}

// New crea un cliente contra el issuer dado.
func New(issuerURL, clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		IssuerURL:    strings.TrimRight(issuerURL, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) discovery(ctx context.Context) (*discoveryDoc, error) {
	c.mu.RLock()
	disc := c.disc
	stale := time.Since(c.discU) > 24*time.Hour
	c.mu.RUnlock()
	if disc != nil && !stale {
		return disc, nil
	}

	req, _ := http.NewRequestWithContext(ctx, "GET", c.IssuerURL+"/.well-known/openid-configuration", nil)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("oidc: discovery http %d", resp.StatusCode)
	}
	var dd discoveryDoc
	if err := json.NewDecoder(resp.Body).Decode(&dd); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.disc = &dd
	c.discU = time.Now()
	c.mu.Unlock()
	return &dd, nil
}

// ExchangeCode intercambia el authorization code en el token endpoint del
// proveedor y retorna su respuesta completa.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	disc, err := c.discovery(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("redirect_uri", c.RedirectURL)

	req, _ := http.NewRequestWithContext(ctx, "POST", disc.TokenEndpoint, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var b struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		return nil, fmt.Errorf("%w: http %d: %s %s", ErrExchangeRejected, resp.StatusCode, b.Error, b.ErrorDescription)
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access_token", ErrExchangeRejected)
	}
	return &tr, nil
}
