package service

import (
	"errors"
	"fmt"

	"github.com/sandeepkv93/account-verification-service/internal/validation"
)

var (
	ErrInvalidEmail           = errors.New("invalid email address")
	ErrWeakPassword           = validation.ErrWeakPassword
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrAccountCreationFailed  = errors.New("account creation failed")

	ErrMissingToken        = errors.New("registration token is required")
	ErrIssuanceFailed      = errors.New("verification code could not be issued")
	ErrEmailDeliveryFailed = errors.New("verification email could not be delivered")

	ErrMissingFields      = errors.New("email, token and code are required")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid registration token")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrExpiryMissing      = errors.New("verification code has no expiry")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrVerificationFailed = errors.New("verification failed")

	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrNotVerified          = errors.New("email not verified")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// Error sets each operation can return. Callers may rely on every returned
// error matching exactly one member via errors.Is.
var (
	RegisterErrors     = []error{ErrInvalidEmail, ErrWeakPassword, ErrEmailAlreadyRegistered, ErrAccountCreationFailed}
	IssueErrors        = []error{ErrInvalidEmail, ErrMissingToken, ErrIssuanceFailed, ErrEmailDeliveryFailed}
	VerifyErrors       = []error{ErrMissingFields, ErrUserNotFound, ErrInvalidToken, ErrInvalidCode, ErrExpiryMissing, ErrCodeExpired, ErrVerificationFailed}
	AuthenticateErrors = []error{ErrInvalidCredentials, ErrNotVerified, ErrAuthenticationFailed}
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindExpired
	KindUnauthorized
	KindForbidden
	KindDependency
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindExpired:
		return "expired"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindDependency:
		return "dependency"
	default:
		return "internal"
	}
}

// KindOf classifies a service error for transport mapping. Unknown errors are
// internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrMissingToken), errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrInvalidCode):
		return KindValidation
	case errors.Is(err, ErrEmailAlreadyRegistered), errors.Is(err, ErrIssuanceFailed):
		return KindConflict
	case errors.Is(err, ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ErrCodeExpired):
		return KindExpired
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrInvalidCredentials):
		return KindUnauthorized
	case errors.Is(err, ErrNotVerified):
		return KindForbidden
	case errors.Is(err, ErrEmailDeliveryFailed):
		return KindDependency
	default:
		return KindInternal
	}
}

const (
	EmailErrorSandboxRecipient = "SANDBOX_RECIPIENT_NOT_VERIFIED"
	EmailErrorDailyQuota       = "DAILY_QUOTA_EXCEEDED"
	EmailErrorGeneral          = "GENERAL_ERROR"
)

// EmailDeliveryError is returned by senders with a provider-independent code.
type EmailDeliveryError struct {
	Code    string
	Message string
	Err     error
}

func (e *EmailDeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *EmailDeliveryError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrEmailDeliveryFailed) match a delivery error
// returned from the issuer.
func (e *EmailDeliveryError) Is(target error) bool {
	return target == ErrEmailDeliveryFailed
}

func asDeliveryError(err error) *EmailDeliveryError {
	var de *EmailDeliveryError
	if errors.As(err, &de) {
		return de
	}
	return &EmailDeliveryError{Code: EmailErrorGeneral, Message: "failed to send verification email", Err: err}
}
