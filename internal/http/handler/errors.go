package handler

import (
	"errors"
	"net/http"

	"github.com/sandeepkv93/account-verification-service/internal/http/response"
	"github.com/sandeepkv93/account-verification-service/internal/service"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{service.ErrInvalidEmail, "INVALID_EMAIL"},
	{service.ErrWeakPassword, "WEAK_PASSWORD"},
	{service.ErrEmailAlreadyRegistered, "EMAIL_ALREADY_REGISTERED"},
	{service.ErrMissingToken, "MISSING_TOKEN"},
	{service.ErrIssuanceFailed, "ISSUANCE_FAILED"},
	{service.ErrEmailDeliveryFailed, "EMAIL_DELIVERY_FAILED"},
	{service.ErrMissingFields, "MISSING_FIELDS"},
	{service.ErrUserNotFound, "USER_NOT_FOUND"},
	{service.ErrInvalidToken, "INVALID_TOKEN"},
	{service.ErrInvalidCode, "INVALID_CODE"},
	{service.ErrExpiryMissing, "EXPIRY_MISSING"},
	{service.ErrCodeExpired, "CODE_EXPIRED"},
	{service.ErrInvalidCredentials, "INVALID_CREDENTIALS"},
	{service.ErrNotVerified, "EMAIL_UNVERIFIED"},
}

var kindStatus = map[service.ErrorKind]int{
	service.KindValidation:   http.StatusBadRequest,
	service.KindConflict:     http.StatusConflict,
	service.KindNotFound:     http.StatusNotFound,
	service.KindExpired:      http.StatusGone,
	service.KindUnauthorized: http.StatusUnauthorized,
	service.KindForbidden:    http.StatusForbidden,
	service.KindDependency:   http.StatusBadGateway,
	service.KindInternal:     http.StatusInternalServerError,
}

// mapServiceError resolves a service error to its HTTP status, error code and
// public message. Internal causes never reach the message.
func mapServiceError(err error) (int, string, string) {
	status, ok := kindStatus[service.KindOf(err)]
	if !ok {
		status = http.StatusInternalServerError
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return status, ec.code, ec.err.Error()
		}
	}
	return http.StatusInternalServerError, "INTERNAL", "internal error"
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error, details any) int {
	status, code, msg := mapServiceError(err)
	var de *service.EmailDeliveryError
	if details == nil && errors.As(err, &de) {
		details = map[string]string{"provider_code": de.Code}
	}
	response.Error(w, r, status, code, msg, details)
	return status
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "error"
	case status >= 400:
		return "failure"
	default:
		return "success"
	}
}
