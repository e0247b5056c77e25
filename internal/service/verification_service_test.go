package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/sandeepkv93/account-verification-service/internal/domain"
	"github.com/sandeepkv93/account-verification-service/internal/repository"
	repogomock "github.com/sandeepkv93/account-verification-service/internal/repository/gomock"
)

func TestVerificationServiceIssueMatrix(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid email", func(t *testing.T) {
		fx := newServiceFixture()
		if _, err := fx.verification.Issue(ctx, "nope", "token"); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("expected ErrInvalidEmail, got %v", err)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		fx := newServiceFixture()
		if _, err := fx.verification.Issue(ctx, "user@example.com", ""); !errors.Is(err, ErrMissingToken) {
			t.Fatalf("expected ErrMissingToken, got %v", err)
		}
	})

	t.Run("wrong token never mutates code", func(t *testing.T) {
		fx := newServiceFixture()
		if _, err := fx.registration.Register(ctx, "user@example.com", "password"); err != nil {
			t.Fatalf("register: %v", err)
		}
		_, err := fx.verification.Issue(ctx, "user@example.com", "not-the-token")
		if !errors.Is(err, ErrIssuanceFailed) {
			t.Fatalf("expected ErrIssuanceFailed, got %v", err)
		}
		acct := fx.store.get("user@example.com")
		if acct.VerificationCode != nil || acct.VerificationCodeExpiry != nil {
			t.Fatalf("wrong token must not store a code, got %+v", acct)
		}
		if _, sent := fx.sender.last(); sent {
			t.Fatal("wrong token must not send email")
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		fx := newServiceFixture()
		if _, err := fx.verification.Issue(ctx, "ghost@example.com", "token"); !errors.Is(err, ErrIssuanceFailed) {
			t.Fatalf("expected ErrIssuanceFailed, got %v", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		fx := newServiceFixture()
		res, err := fx.registration.Register(ctx, "user@example.com", "password")
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		fx.store.updateErr = errors.New("throttled")
		if _, err := fx.verification.Issue(ctx, "user@example.com", res.RegistrationToken); !errors.Is(err, ErrIssuanceFailed) {
			t.Fatalf("expected ErrIssuanceFailed, got %v", err)
		}
	})

	t.Run("success stores code and sends email", func(t *testing.T) {
		fx := newServiceFixture()
		res, err := fx.registration.Register(ctx, "user@example.com", "password")
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		status, err := fx.verification.Issue(ctx, "user@example.com", res.RegistrationToken)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if status != "sent" {
			t.Fatalf("expected sent, got %q", status)
		}
		acct := fx.store.get("user@example.com")
		if acct.VerificationCode == nil || acct.VerificationCodeExpiry == nil {
			t.Fatal("expected code and expiry to be set together")
		}
		n, err := strconv.Atoi(*acct.VerificationCode)
		if err != nil || n < 100000 || n > 999999 {
			t.Fatalf("unexpected code %q", *acct.VerificationCode)
		}
		if want := fx.clock.Now().Add(15 * time.Minute); !acct.VerificationCodeExpiry.Equal(want) {
			t.Fatalf("expected expiry %s, got %s", want, acct.VerificationCodeExpiry)
		}
		msg, ok := fx.sender.last()
		if !ok {
			t.Fatal("expected verification email")
		}
		if msg.To != "user@example.com" || msg.Subject != "Verify your email" {
			t.Fatalf("unexpected message %+v", msg)
		}
		if !strings.Contains(msg.Text, *acct.VerificationCode) || !strings.Contains(msg.HTML, *acct.VerificationCode) {
			t.Fatal("expected code in both email bodies")
		}
		if !strings.Contains(msg.Text, "15 minutes") {
			t.Fatalf("expected lifetime in body, got %q", msg.Text)
		}
	})

	t.Run("reissue replaces code", func(t *testing.T) {
		fx := newServiceFixture()
		token, first := fx.registerAndIssue("user@example.com", "password")
		fx.verification.newCode = func() (string, error) {
			if first == "111111" {
				return "222222", nil
			}
			return "111111", nil
		}
		if _, err := fx.verification.Issue(ctx, "user@example.com", token); err != nil {
			t.Fatalf("reissue: %v", err)
		}
		acct := fx.store.get("user@example.com")
		if *acct.VerificationCode == first {
			t.Fatal("expected reissue to replace the stored code")
		}
	})

	t.Run("verified account cannot be reissued", func(t *testing.T) {
		fx := newServiceFixture()
		token, code := fx.registerAndIssue("user@example.com", "password")
		if err := fx.verification.Verify(ctx, "user@example.com", token, code); err != nil {
			t.Fatalf("verify: %v", err)
		}
		if _, err := fx.verification.Issue(ctx, "user@example.com", token); !errors.Is(err, ErrIssuanceFailed) {
			t.Fatalf("expected ErrIssuanceFailed, got %v", err)
		}
	})

	t.Run("delivery failure keeps provider code", func(t *testing.T) {
		tests := []struct {
			name     string
			sendErr  error
			wantCode string
		}{
			{name: "sandbox", sendErr: &EmailDeliveryError{Code: EmailErrorSandboxRecipient, Message: "sandbox"}, wantCode: EmailErrorSandboxRecipient},
			{name: "quota", sendErr: &EmailDeliveryError{Code: EmailErrorDailyQuota, Message: "quota"}, wantCode: EmailErrorDailyQuota},
			{name: "untyped", sendErr: errors.New("connection reset"), wantCode: EmailErrorGeneral},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				fx := newServiceFixture()
				res, err := fx.registration.Register(ctx, "user@example.com", "password")
				if err != nil {
					t.Fatalf("register: %v", err)
				}
				fx.sender.err = tc.sendErr
				_, err = fx.verification.Issue(ctx, "user@example.com", res.RegistrationToken)
				if !errors.Is(err, ErrEmailDeliveryFailed) {
					t.Fatalf("expected ErrEmailDeliveryFailed, got %v", err)
				}
				var de *EmailDeliveryError
				if !errors.As(err, &de) || de.Code != tc.wantCode {
					t.Fatalf("expected code %s, got %+v", tc.wantCode, de)
				}
			})
		}
	})
}

func TestVerificationServiceVerifyMatrix(t *testing.T) {
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		fx := newServiceFixture()
		cases := [][3]string{{"", "t", "c"}, {"user@example.com", "", "c"}, {"user@example.com", "t", ""}}
		for _, c := range cases {
			if err := fx.verification.Verify(ctx, c[0], c[1], c[2]); !errors.Is(err, ErrMissingFields) {
				t.Fatalf("Verify(%q,%q,%q) expected ErrMissingFields, got %v", c[0], c[1], c[2], err)
			}
		}
	})

	t.Run("user not found", func(t *testing.T) {
		fx := newServiceFixture()
		if err := fx.verification.Verify(ctx, "ghost@example.com", "t", "123456"); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("invalid token checked before code", func(t *testing.T) {
		fx := newServiceFixture()
		fx.registerAndIssue("user@example.com", "password")
		if err := fx.verification.Verify(ctx, "user@example.com", "wrong", "000000"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("invalid code", func(t *testing.T) {
		fx := newServiceFixture()
		token, code := fx.registerAndIssue("user@example.com", "password")
		wrong := "100000"
		if code == wrong {
			wrong = "100001"
		}
		if err := fx.verification.Verify(ctx, "user@example.com", token, wrong); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("expected ErrInvalidCode, got %v", err)
		}
	})

	t.Run("code never issued", func(t *testing.T) {
		fx := newServiceFixture()
		res, err := fx.registration.Register(ctx, "user@example.com", "password")
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		if err := fx.verification.Verify(ctx, "user@example.com", res.RegistrationToken, "123456"); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("expected ErrInvalidCode, got %v", err)
		}
	})

	t.Run("expiry missing", func(t *testing.T) {
		fx := newServiceFixture()
		token, code := "tok", "123456"
		fx.store.put(&domain.Account{Email: "user@example.com", ID: "id", RegistrationToken: &token, VerificationCode: &code})
		if err := fx.verification.Verify(ctx, "user@example.com", token, code); !errors.Is(err, ErrExpiryMissing) {
			t.Fatalf("expected ErrExpiryMissing, got %v", err)
		}
	})

	t.Run("expired code leaves record untouched", func(t *testing.T) {
		fx := newServiceFixture()
		token, code := fx.registerAndIssue("user@example.com", "password")
		before := fx.store.get("user@example.com")
		fx.clock.Advance(16 * time.Minute)

		if err := fx.verification.Verify(ctx, "user@example.com", token, code); !errors.Is(err, ErrCodeExpired) {
			t.Fatalf("expected ErrCodeExpired, got %v", err)
		}
		after := fx.store.get("user@example.com")
		if after.IsEmailVerified || after.VerificationCode == nil || *after.VerificationCode != *before.VerificationCode ||
			after.RegistrationToken == nil || !after.UpdatedAt.Equal(before.UpdatedAt) {
			t.Fatalf("expected unchanged record, before=%+v after=%+v", before, after)
		}
	})

	t.Run("happy path then replay", func(t *testing.T) {
		fx := newServiceFixture()
		token, code := fx.registerAndIssue("user@example.com", "password")
		fx.clock.Advance(14 * time.Minute)

		if err := fx.verification.Verify(ctx, "USER@example.com", token, code); err != nil {
			t.Fatalf("verify: %v", err)
		}
		acct := fx.store.get("user@example.com")
		if !acct.IsEmailVerified || acct.EmailVerifiedAt == nil {
			t.Fatalf("expected verified account, got %+v", acct)
		}
		if acct.RegistrationToken != nil || acct.VerificationCode != nil || acct.VerificationCodeExpiry != nil {
			t.Fatalf("expected transient fields removed, got %+v", acct)
		}
		if err := fx.verification.Verify(ctx, "user@example.com", token, code); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken on replay, got %v", err)
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		fx := newServiceFixture()
		fx.store.findErr = errors.New("timeout")
		if err := fx.verification.Verify(ctx, "user@example.com", "t", "123456"); !errors.Is(err, ErrVerificationFailed) {
			t.Fatalf("expected ErrVerificationFailed, got %v", err)
		}
	})

	t.Run("write failure", func(t *testing.T) {
		fx := newServiceFixture()
		token, code := fx.registerAndIssue("user@example.com", "password")
		fx.store.updateErr = errors.New("timeout")
		if err := fx.verification.Verify(ctx, "user@example.com", token, code); !errors.Is(err, ErrVerificationFailed) {
			t.Fatalf("expected ErrVerificationFailed, got %v", err)
		}
	})
}

func TestVerificationServiceVerifyLostRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := repogomock.NewMockAccountRepository(ctrl)

	token, code := "tok", "123456"
	expiry := time.Now().Add(time.Minute)
	repo.EXPECT().FindByEmail(gomock.Any(), "user@example.com").Return(&domain.Account{
		Email:                  "user@example.com",
		ID:                     "id",
		RegistrationToken:      &token,
		VerificationCode:       &code,
		VerificationCodeExpiry: &expiry,
	}, nil)
	repo.EXPECT().UpdateIf(gomock.Any(), "user@example.com", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, patch repository.AccountPatch, cond repository.AccountCondition) error {
			if !patch.MarkEmailVerified {
				t.Fatal("expected verified patch")
			}
			if cond.RegistrationToken == nil || *cond.RegistrationToken != token || cond.VerificationCode == nil || *cond.VerificationCode != code || !cond.Unverified {
				t.Fatalf("expected token, code and unverified guard, got %+v", cond)
			}
			return repository.ErrConditionFailed
		})

	svc := NewVerificationService(repo, NewMockEmailSender(ctrl), 15*time.Minute, discardLogger())
	if err := svc.Verify(context.Background(), "user@example.com", token, code); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken when the guarded write loses, got %v", err)
	}
}
