package email

import (
	"errors"
	"fmt"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "read tcp: operation timed out" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestDiagnose_Classification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		code      string
		temporary bool
	}{
		{"nil", nil, "unknown", false},
		{"net timeout", timeoutErr{}, "timeout", true},
		{"deadline", errors.New("context deadline exceeded"), "timeout", true},
		{"refused", errors.New("dial tcp 10.0.0.1:587: connection refused"), "dial", true},
		{"dns", errors.New("lookup smtp.example.com: no such host"), "dial", true},
		{"cert", errors.New("x509: certificate signed by unknown authority"), "tls", false},
		{"tls handshake", errors.New("tls: handshake failure"), "tls", false},
		{"auth 535", errors.New("535 5.7.8 Username and Password not accepted"), "auth", false},
		{"auth generic", errors.New("smtp: authentication failed"), "auth", false},
		{"throttled 421", errors.New("421 4.7.0 Try again later"), "rate_limited", true},
		{"rate limit", errors.New("rate limit exceeded for sender"), "rate_limited", true},
		{"bad rcpt", errors.New("550 5.1.1 User unknown"), "invalid_recipient", false},
		{"policy", errors.New("554 5.7.1 Message rejected due to policy"), "rejected", false},
		{"other", errors.New("boom"), "unknown", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Diagnose(tc.err)
			if d.Code != tc.code || d.Temporary != tc.temporary {
				t.Fatalf("Diagnose(%v) = %+v, esperaba code=%s temporary=%v",
					tc.err, d, tc.code, tc.temporary)
			}
		})
	}
}

func TestDiagnose_WrappedError(t *testing.T) {
	err := fmt.Errorf("send mail: %w", errors.New("535 authentication failed"))
	if d := Diagnose(err); d.Code != "auth" || d.Temporary {
		t.Fatalf("error envuelto mal clasificado: %+v", d)
	}
}
