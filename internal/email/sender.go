// Package email implementa la entrega de correos del servicio: códigos OTP
// y links de password reset, con clasificación de fallas y reintentos con
// backoff fuera del request path.
package email

import "time"

// Kind identifica la clase de mensaje.
type Kind string

const (
	KindOTP   Kind = "otp"
	KindReset Kind = "reset"
)

// Sender envía un mensaje ya renderizado. Implementaciones: SMTPSender
// (producción) y fakes en tests.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// Message es un correo listo para entregar.
type Message struct {
	Kind     Kind
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// SMTPConfig agrupa la configuración del transporte SMTP.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
	TLSMode  string        // "auto" | "starttls" | "ssl" | "none"
	Timeout  time.Duration // timeout por intento de envío
}
