package email

import (
	"net"
	"strings"
)

// Diag clasifica un error de envío. Temporary decide si el dispatcher
// reintenta; un error no-temporal se trata como permanente de inmediato.
type Diag struct {
	Code      string // auth|tls|dial|timeout|rate_limited|invalid_recipient|rejected|network|unknown
	Temporary bool
}

// Diagnose analiza un error de transporte y retorna su clasificación.
func Diagnose(err error) Diag {
	if err == nil {
		return Diag{Code: "unknown"}
	}
	s := strings.ToLower(err.Error())

	// timeouts
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return Diag{Code: "timeout", Temporary: true}
	}
	if strings.Contains(s, "timeout") || strings.Contains(s, "i/o timeout") ||
		strings.Contains(s, "deadline exceeded") {
		return Diag{Code: "timeout", Temporary: true}
	}

	// dial/conn/dns
	if strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "no such host") ||
		strings.Contains(s, "dial tcp") {
		return Diag{Code: "dial", Temporary: true}
	}

	// tls/handshake/cert
	if strings.Contains(s, "x509:") ||
		strings.Contains(s, "tls") && (strings.Contains(s, "handshake") || strings.Contains(s, "certificate")) {
		return Diag{Code: "tls", Temporary: false}
	}

	// auth rechazada por el transporte
	if strings.Contains(s, "5.7.8") || strings.Contains(s, "535") ||
		strings.Contains(s, "username and password not accepted") ||
		strings.Contains(s, "authentication failed") ||
		strings.Contains(s, "auth") && strings.Contains(s, "failed") {
		return Diag{Code: "auth", Temporary: false}
	}

	// throttling temporal (4.x.x)
	if strings.Contains(s, "4.7.0") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "try again later") ||
		strings.Contains(s, "temporarily unavailable") ||
		strings.Contains(s, "451") || strings.Contains(s, "421") {
		return Diag{Code: "rate_limited", Temporary: true}
	}

	// destinatario inválido
	if strings.Contains(s, "5.1.1") || strings.Contains(s, "user unknown") ||
		strings.Contains(s, "mailbox not found") ||
		strings.Contains(s, "invalid recipient") {
		return Diag{Code: "invalid_recipient", Temporary: false}
	}

	// políticas/rechazos 5.7.1
	if strings.Contains(s, "5.7.1") ||
		strings.Contains(s, "message rejected") ||
		strings.Contains(s, "policy") {
		return Diag{Code: "rejected", Temporary: false}
	}

	// resto de errores de red
	if _, ok := err.(net.Error); ok {
		return Diag{Code: "network", Temporary: true}
	}
	return Diag{Code: "unknown", Temporary: false}
}
