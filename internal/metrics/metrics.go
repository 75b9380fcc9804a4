package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Domain Prometheus metrics. Standalone package to avoid import cycles
// between the email/auth services and the HTTP layer.

var (
	AuthAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Intentos de autenticación por proveedor y resultado",
	}, []string{"provider", "outcome"})

	OTPIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_issued_total",
		Help: "Códigos OTP emitidos por propósito",
	}, []string{"purpose"})

	OTPVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_verifications_total",
		Help: "Verificaciones de OTP por propósito y resultado",
	}, []string{"purpose", "outcome"})

	EmailDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_delivered_total",
		Help: "Correos entregados por clase de mensaje",
	}, []string{"kind"})

	EmailFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_failed_total",
		Help: "Correos con falla definitiva por clase y código de diagnóstico",
	}, []string{"kind", "code"})

	EmailRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_retries_total",
		Help: "Reintentos de envío por clase de mensaje",
	}, []string{"kind"})
)

// Register registra las métricas de dominio en el registry dado (o el
// default si es nil). Tolera registros duplicados.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		AuthAttempts, OTPIssued, OTPVerifications,
		EmailDelivered, EmailFailed, EmailRetries,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
