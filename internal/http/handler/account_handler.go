package handler

import (
	"errors"
	"net/http"

	"github.com/sandeepkv93/account-verification-service/internal/http/middleware"
	"github.com/sandeepkv93/account-verification-service/internal/http/response"
	"github.com/sandeepkv93/account-verification-service/internal/service"
)

type AccountHandler struct {
	authSvc service.AuthServiceInterface
}

func NewAccountHandler(authSvc service.AuthServiceInterface) *AccountHandler {
	return &AccountHandler{authSvc: authSvc}
}

// Me returns the account behind the session. The token subject must still
// match the stored account id so a re-registered email cannot reuse an old
// session.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	account, err := h.authSvc.Profile(r.Context(), claims.Email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.Error(w, r, http.StatusNotFound, "USER_NOT_FOUND", "user not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	if account.ID != claims.Subject {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "session does not match account", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, account)
}
