package security

import (
	"net/http"
	"strings"
	"time"
)

const (
	SessionCookieName = "session_token"
	CSRFCookieName    = "csrf_token"
)

type CookieManager struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func NewCookieManager(domain string, secure bool, sameSite string) *CookieManager {
	return &CookieManager{Domain: domain, Secure: secure, SameSite: parseSameSite(sameSite)}
}

// SetSessionCookies writes the HttpOnly session cookie and the script-readable
// CSRF cookie that must be echoed back in X-CSRF-Token.
func (m *CookieManager) SetSessionCookies(w http.ResponseWriter, sessionToken, csrfToken string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	http.SetCookie(w, m.cookie(SessionCookieName, sessionToken, maxAge, true))
	http.SetCookie(w, m.cookie(CSRFCookieName, csrfToken, maxAge, false))
}

func (m *CookieManager) ClearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie(SessionCookieName, "", -1, true))
	http.SetCookie(w, m.cookie(CSRFCookieName, "", -1, false))
}

func (m *CookieManager) cookie(name, value string, maxAge int, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   m.Secure,
		SameSite: m.SameSite,
	}
}

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
