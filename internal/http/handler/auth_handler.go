package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sandeepkv93/account-verification-service/internal/http/middleware"
	"github.com/sandeepkv93/account-verification-service/internal/http/response"
	"github.com/sandeepkv93/account-verification-service/internal/observability"
	"github.com/sandeepkv93/account-verification-service/internal/security"
	"github.com/sandeepkv93/account-verification-service/internal/service"
)

type AuthHandler struct {
	registration service.RegistrationServiceInterface
	verification service.VerificationServiceInterface
	authSvc      service.AuthServiceInterface
	cookieMgr    *security.CookieManager
	sessionTTL   time.Duration
}

func NewAuthHandler(
	registration service.RegistrationServiceInterface,
	verification service.VerificationServiceInterface,
	authSvc service.AuthServiceInterface,
	cookieMgr *security.CookieManager,
	sessionTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		registration: registration,
		verification: verification,
		authSvc:      authSvc,
		cookieMgr:    cookieMgr,
		sessionTTL:   sessionTTL,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email             string `json:"email"`
	RegistrationToken string `json:"registration_token"`
}

type verifyConfirmRequest struct {
	Email             string `json:"email"`
	RegistrationToken string `json:"registration_token"`
	Code              string `json:"code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates the account and immediately issues the first verification
// code. A delivery failure still returns the registration token so the client
// can ask for a resend.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "register", status, time.Since(start))
	}()

	var body registerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	result, err := h.registration.Register(r.Context(), body.Email, body.Password)
	if err != nil {
		status = statusLabel(writeServiceError(w, r, err, nil))
		return
	}

	if _, err := h.verification.Issue(r.Context(), body.Email, result.RegistrationToken); err != nil {
		details := map[string]string{
			"account_id":         result.AccountID,
			"registration_token": result.RegistrationToken,
		}
		var de *service.EmailDeliveryError
		if errors.As(err, &de) {
			details["provider_code"] = de.Code
		}
		status = statusLabel(writeServiceError(w, r, err, details))
		return
	}
	response.JSON(w, r, http.StatusCreated, map[string]string{
		"account_id":         result.AccountID,
		"registration_token": result.RegistrationToken,
		"verification":       service.VerificationStatusSent,
	})
}

func (h *AuthHandler) VerifyRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "verify_request", status, time.Since(start))
	}()

	var body verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	sent, err := h.verification.Issue(r.Context(), body.Email, body.RegistrationToken)
	if err != nil {
		status = statusLabel(writeServiceError(w, r, err, nil))
		return
	}
	response.JSON(w, r, http.StatusAccepted, map[string]string{"status": sent})
}

func (h *AuthHandler) VerifyConfirm(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "verify_confirm", status, time.Since(start))
	}()

	var body verifyConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if err := h.verification.Verify(r.Context(), body.Email, body.RegistrationToken, body.Code); err != nil {
		status = statusLabel(writeServiceError(w, r, err, nil))
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "verified"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "login", status, time.Since(start))
	}()

	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Password == "" {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email and password are required", nil)
		return
	}
	result, err := h.authSvc.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		status = statusLabel(writeServiceError(w, r, err, nil))
		return
	}
	h.cookieMgr.SetSessionCookies(w, result.SessionToken, result.CSRFToken, h.sessionTTL)
	response.JSON(w, r, http.StatusOK, result)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "logout", status, time.Since(start))
	}()

	if _, ok := middleware.ClaimsFromContext(r.Context()); !ok {
		status = "failure"
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	h.cookieMgr.ClearSessionCookies(w)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}
