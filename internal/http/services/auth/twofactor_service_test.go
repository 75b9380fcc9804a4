package auth

import (
	"context"
	"errors"
	"testing"
)

func newTwoFactorFixture(t *testing.T) (*loginFixture, TwoFactorService) {
	t.Helper()
	f := newLoginFixture(t)
	svc := NewTwoFactorService(TwoFactorDeps{Store: f.store, OTP: f.otp})
	return f, svc
}

func TestTwoFactor_SetupCycle(t *testing.T) {
	f, svc := newTwoFactorFixture(t)
	ctx := context.Background()

	enabled, err := svc.Status(ctx, f.account.ID)
	if err != nil || enabled {
		t.Fatalf("Status inicial = (%v, %v), esperaba (false, nil)", enabled, err)
	}

	if err := svc.SendSetupOTP(ctx, f.account.ID); err != nil {
		t.Fatalf("SendSetupOTP err: %v", err)
	}
	code := f.sender.lastCode(t)

	if err := svc.Enable(ctx, f.account.ID, code); err != nil {
		t.Fatalf("Enable err: %v", err)
	}
	enabled, err = svc.Status(ctx, f.account.ID)
	if err != nil || !enabled {
		t.Fatalf("Status tras Enable = (%v, %v), esperaba (true, nil)", enabled, err)
	}
}

func TestTwoFactor_DisableCycle(t *testing.T) {
	f, svc := newTwoFactorFixture(t)
	ctx := context.Background()
	if err := f.store.Accounts().SetTwoFactorEnabled(ctx, f.account.ID, true); err != nil {
		t.Fatal(err)
	}

	if err := svc.SendDisableOTP(ctx, f.account.ID); err != nil {
		t.Fatalf("SendDisableOTP err: %v", err)
	}
	code := f.sender.lastCode(t)

	if err := svc.Disable(ctx, f.account.ID, code); err != nil {
		t.Fatalf("Disable err: %v", err)
	}
	enabled, err := svc.Status(ctx, f.account.ID)
	if err != nil || enabled {
		t.Fatalf("Status tras Disable = (%v, %v), esperaba (false, nil)", enabled, err)
	}
}

func TestTwoFactor_SendGuardsFlagState(t *testing.T) {
	f, svc := newTwoFactorFixture(t)
	ctx := context.Background()

	// Disable sobre cuenta sin segundo factor.
	if err := svc.SendDisableOTP(ctx, f.account.ID); !errors.Is(err, ErrAlreadyDisabled) {
		t.Fatalf("esperaba ErrAlreadyDisabled, got %v", err)
	}

	if err := f.store.Accounts().SetTwoFactorEnabled(ctx, f.account.ID, true); err != nil {
		t.Fatal(err)
	}
	// Setup sobre cuenta que ya lo tiene activo.
	if err := svc.SendSetupOTP(ctx, f.account.ID); !errors.Is(err, ErrAlreadyEnabled) {
		t.Fatalf("esperaba ErrAlreadyEnabled, got %v", err)
	}
}

func TestTwoFactor_ToggleRejectsWrongOrMissingCode(t *testing.T) {
	f, svc := newTwoFactorFixture(t)
	ctx := context.Background()

	if err := svc.Enable(ctx, f.account.ID, ""); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("esperaba ErrMissingFields, got %v", err)
	}
	if err := svc.Enable(ctx, f.account.ID, "000000"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("esperaba ErrInvalidOTP, got %v", err)
	}

	enabled, _ := svc.Status(ctx, f.account.ID)
	if enabled {
		t.Fatal("un código rechazado no debe mutar el flag")
	}
}

func TestTwoFactor_CodePurposeIsScoped(t *testing.T) {
	f, svc := newTwoFactorFixture(t)
	ctx := context.Background()

	if err := svc.SendSetupOTP(ctx, f.account.ID); err != nil {
		t.Fatal(err)
	}
	code := f.sender.lastCode(t)

	// Un código de setup no sirve para el flujo de login.
	if _, err := f.svc.CompleteTwoFactor(ctx, f.account.ID, code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("código de otro propósito debería rechazarse, got %v", err)
	}
	// Sigue vivo para su propósito original.
	if err := svc.Enable(ctx, f.account.ID, code); err != nil {
		t.Fatalf("Enable con el código correcto err: %v", err)
	}
}

func TestTwoFactor_UnknownAccount(t *testing.T) {
	_, svc := newTwoFactorFixture(t)
	ctx := context.Background()

	if err := svc.SendSetupOTP(ctx, "nope"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("esperaba ErrAccountNotFound, got %v", err)
	}
	if _, err := svc.Status(ctx, "nope"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("esperaba ErrAccountNotFound, got %v", err)
	}
}

func TestTwoFactor_SetupCodeSingleUse(t *testing.T) {
	f, svc := newTwoFactorFixture(t)
	ctx := context.Background()

	if err := svc.SendSetupOTP(ctx, f.account.ID); err != nil {
		t.Fatal(err)
	}
	code := f.sender.lastCode(t)
	if err := svc.Enable(ctx, f.account.ID, code); err != nil {
		t.Fatal(err)
	}

	// Volver a deshabilitar con el mismo código no puede funcionar: ya fue
	// consumido y además es de otro propósito.
	if err := svc.Disable(ctx, f.account.ID, code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("esperaba ErrInvalidOTP, got %v", err)
	}
}
