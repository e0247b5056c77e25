package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestRegistrationServiceRegisterMatrix(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid emails rejected", func(t *testing.T) {
		for _, email := range []string{"", "invalid-email", "@domain.com", "user@", "user@domain", "user.domain.com", " user@domain.com ", "user@domain.com."} {
			fx := newServiceFixture()
			_, err := fx.registration.Register(ctx, email, "password")
			if !errors.Is(err, ErrInvalidEmail) {
				t.Fatalf("Register(%q) expected ErrInvalidEmail, got %v", email, err)
			}
			if fx.store.count() != 0 {
				t.Fatalf("Register(%q) must not create a record", email)
			}
		}
	})

	t.Run("weak passwords rejected", func(t *testing.T) {
		for _, password := range []string{"", "abc"} {
			fx := newServiceFixture()
			_, err := fx.registration.Register(ctx, "user@example.com", password)
			if !errors.Is(err, ErrWeakPassword) {
				t.Fatalf("Register with %q expected ErrWeakPassword, got %v", password, err)
			}
			if fx.store.count() != 0 {
				t.Fatal("weak password must not create a record")
			}
		}
	})

	t.Run("success creates unverified account", func(t *testing.T) {
		fx := newServiceFixture()
		res, err := fx.registration.Register(ctx, "User@Example.com", "abcd")
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		if _, err := uuid.Parse(res.AccountID); err != nil {
			t.Fatalf("expected uuid account id, got %q", res.AccountID)
		}
		if len(res.RegistrationToken) != 22 {
			t.Fatalf("expected 128-bit base64url token, got %q", res.RegistrationToken)
		}
		acct := fx.store.get("user@example.com")
		if acct == nil {
			t.Fatal("expected lowercased email to be stored")
		}
		if acct.IsEmailVerified || acct.VerificationCode != nil || acct.VerificationCodeExpiry != nil {
			t.Fatalf("unexpected fresh account state %+v", acct)
		}
		if acct.RegistrationToken == nil || *acct.RegistrationToken != res.RegistrationToken {
			t.Fatal("stored token must match returned token")
		}
		if acct.PasswordHash != "plain$abcd" {
			t.Fatalf("expected hashed password to be stored, got %q", acct.PasswordHash)
		}
		if !acct.CreatedAt.Equal(fx.clock.Now()) {
			t.Fatalf("expected created_at from clock, got %s", acct.CreatedAt)
		}
		if len(fx.sender.sent) != 0 {
			t.Fatal("register must not send email")
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		fx := newServiceFixture()
		if _, err := fx.registration.Register(ctx, "dupe@example.com", "password"); err != nil {
			t.Fatalf("first register: %v", err)
		}
		_, err := fx.registration.Register(ctx, "DUPE@example.com", "password2")
		if !errors.Is(err, ErrEmailAlreadyRegistered) {
			t.Fatalf("expected ErrEmailAlreadyRegistered, got %v", err)
		}
		if fx.store.count() != 1 {
			t.Fatalf("expected exactly one record, got %d", fx.store.count())
		}
	})

	t.Run("store failure hides cause", func(t *testing.T) {
		fx := newServiceFixture()
		cause := errors.New("db down")
		fx.store.createErr = cause
		_, err := fx.registration.Register(ctx, "user@example.com", "password")
		if !errors.Is(err, ErrAccountCreationFailed) {
			t.Fatalf("expected ErrAccountCreationFailed, got %v", err)
		}
		if errors.Is(err, cause) {
			t.Fatal("store cause must not be returned to callers")
		}
	})

	t.Run("hash failure", func(t *testing.T) {
		fx := newServiceFixture()
		fx.registration.hasher = plainHasher{err: errors.New("entropy")}
		_, err := fx.registration.Register(ctx, "user@example.com", "password")
		if !errors.Is(err, ErrAccountCreationFailed) {
			t.Fatalf("expected ErrAccountCreationFailed, got %v", err)
		}
	})

	t.Run("token failure", func(t *testing.T) {
		fx := newServiceFixture()
		fx.registration.newToken = func() (string, error) { return "", errors.New("entropy") }
		_, err := fx.registration.Register(ctx, "user@example.com", "password")
		if !errors.Is(err, ErrAccountCreationFailed) {
			t.Fatalf("expected ErrAccountCreationFailed, got %v", err)
		}
		if fx.store.count() != 0 {
			t.Fatal("token failure must not create a record")
		}
	})
}
