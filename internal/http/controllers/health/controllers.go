// Package health contiene el controller de health check.
package health

import (
	"net/http"

	httperrors "github.com/dropDatabas3/paperauth/internal/http/errors"
	"github.com/dropDatabas3/paperauth/internal/store"
)

// Controller responde los probes de liveness/readiness.
type Controller struct {
	store store.Store
}

// NewController crea el controller de health.
func NewController(s store.Store) *Controller {
	return &Controller{store: s}
}

// Healthz maneja GET /healthz: verifica que el storage responda.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := c.store.Ping(r.Context()); err != nil {
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
