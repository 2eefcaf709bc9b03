package httpserver

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/dmitrijs2005/thriftmarket/internal/server/services"
)

func (s *HTTPServer) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration, httpOnly bool, sameSite http.SameSite) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		Secure:   s.cookieSecure,
		SameSite: sameSite,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl / time.Second)
		c.Expires = time.Now().Add(ttl)
	} else if ttl < 0 {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	}
	http.SetCookie(w, c)
}

// setSession writes both session cookies and rotates the CSRF token.
func (s *HTTPServer) setSession(w http.ResponseWriter, session *services.Session) error {
	s.setCookie(w, common.AccessTokenCookieName, session.AccessToken, s.accessTTL, true, http.SameSiteLaxMode)
	s.setCookie(w, common.RefreshTokenCookieName, session.RefreshToken, s.refreshTTL, true, http.SameSiteLaxMode)
	_, err := s.issueCSRF(w)
	return err
}

func (s *HTTPServer) clearSession(w http.ResponseWriter) {
	s.setCookie(w, common.AccessTokenCookieName, "", -1, true, http.SameSiteLaxMode)
	s.setCookie(w, common.RefreshTokenCookieName, "", -1, true, http.SameSiteLaxMode)
}

// issueCSRF sets a fresh CSRF cookie. It stays readable by scripts so the
// browser client can echo it.
func (s *HTTPServer) issueCSRF(w http.ResponseWriter) (string, error) {
	token, err := s.csrf.Issue()
	if err != nil {
		return "", err
	}
	s.setCookie(w, common.CSRFCookieName, token, 0, false, http.SameSiteStrictMode)
	return token, nil
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
