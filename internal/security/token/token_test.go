package tokens

import (
	"strconv"
	"strings"
	"testing"
)

func TestGenerateOTPCode_Format(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := GenerateOTPCode()
		if err != nil {
			t.Fatalf("GenerateOTPCode err: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q: want 6 digits", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q no es numérico: %v", code, err)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d fuera de rango", n)
		}
	}
}

func TestGenerateOpaqueToken_UniqueAndURLSafe(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := GenerateOpaqueToken(32)
		if err != nil {
			t.Fatalf("GenerateOpaqueToken err: %v", err)
		}
		if seen[tok] {
			t.Fatalf("token repetido: %q", tok)
		}
		seen[tok] = true
		if strings.ContainsAny(tok, "+/=") {
			t.Fatalf("token %q no es URL-safe", tok)
		}
	}
}

func TestSHA256Base64URL_Deterministic(t *testing.T) {
	a := SHA256Base64URL("abc")
	b := SHA256Base64URL("abc")
	if a != b {
		t.Fatalf("hash no determinístico: %q vs %q", a, b)
	}
	if a == SHA256Base64URL("abd") {
		t.Fatal("inputs distintos produjeron el mismo hash")
	}
	if strings.ContainsAny(a, "+/=") {
		t.Fatalf("hash %q no es URL-safe", a)
	}
}
