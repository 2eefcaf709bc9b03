package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/dmitrijs2005/thriftmarket/internal/server/auth"
	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
	"github.com/dmitrijs2005/thriftmarket/internal/server/services"
)

const (
	// CaptchaIDHeader repeats the captcha id for clients without a cookie jar.
	CaptchaIDHeader = "X-Captcha-Id"

	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

type userDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	MFAEnabled bool   `json:"mfaEnabled"`
}

func toUserDTO(u *models.User) *userDTO {
	if u == nil {
		return nil
	}
	return &userDTO{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, MFAEnabled: u.MFAEnabled}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Captcha   string `json:"captcha"`
	CaptchaID string `json:"captchaId"`
}

type verifyMFARequest struct {
	TempToken string `json:"tempToken"`
	Code      string `json:"code"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type sessionResponse struct {
	Success bool     `json:"success"`
	User    *userDTO `json:"user"`
}

type mfaRequiredResponse struct {
	Success     bool   `json:"success"`
	MfaRequired bool   `json:"mfaRequired"`
	TempToken   string `json:"tempToken"`
}

type activityDTO struct {
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Severity  string    `json:"severity"`
	IPAddress string    `json:"ipAddress"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *HTTPServer) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(csrfTokenKey{}).(string)
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

func (s *HTTPServer) handleCaptcha(w http.ResponseWriter, r *http.Request) {
	id, img, err := s.auth.IssueCaptcha(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.setCookie(w, common.CaptchaCookieName, id, s.captchaTTL, true, http.SameSiteStrictMode)
	w.Header().Set(CaptchaIDHeader, id)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.auth.Register(r.Context(), services.RegisterInput{
		Name: req.Name, Email: req.Email, Password: req.Password, Role: req.Role,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Success: true, User: toUserDTO(u)})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	captchaID := req.CaptchaID
	if captchaID == "" {
		captchaID = cookieValue(r, common.CaptchaCookieName)
	}

	res, err := s.auth.Login(r.Context(), services.PasswordInput{
		Email:         req.Email,
		Password:      req.Password,
		CaptchaID:     captchaID,
		CaptchaAnswer: req.Captcha,
	})
	// the captcha is single use whatever happened
	s.setCookie(w, common.CaptchaCookieName, "", -1, true, http.SameSiteStrictMode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if res.Next() == services.MfaPhase {
		writeJSON(w, http.StatusOK, mfaRequiredResponse{Success: true, MfaRequired: true, TempToken: res.Challenge})
		return
	}
	s.respondSession(w, r, res.Session)
}

func (s *HTTPServer) handleVerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req verifyMFARequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.auth.VerifyMFA(r.Context(), services.MfaInput{Challenge: req.TempToken, Code: req.Code})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondSession(w, r, session)
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	session, err := s.auth.Refresh(r.Context(), cookieValue(r, common.RefreshTokenCookieName))
	if err != nil {
		s.clearSession(w)
		s.writeError(w, r, err)
		return
	}
	s.respondSession(w, r, session)
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), cookieValue(r, common.RefreshTokenCookieName)); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.clearSession(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	u, err := s.auth.Me(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, User: toUserDTO(u)})
}

func (s *HTTPServer) handleActivity(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	limit := defaultActivityLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, common.ErrValidation)
			return
		}
		limit = min(n, maxActivityLimit)
	}

	rows, err := s.auth.RecentActivity(r.Context(), id.UserID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]activityDTO, 0, len(rows))
	for _, a := range rows {
		out = append(out, activityDTO{
			Action: a.Action, Details: a.Details, Severity: a.Severity, IPAddress: a.IPAddress, CreatedAt: a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out})
}

func (s *HTTPServer) handleMFASetup(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	enr, err := s.auth.SetupMFA(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"secret":     enr.Secret,
		"otpauthUrl": enr.URL,
		"qrCode":     enr.QRCode,
	})
}

func (s *HTTPServer) handleMFAEnable(w http.ResponseWriter, r *http.Request) {
	s.handleMFAToggle(w, r, s.auth.EnableMFA)
}

func (s *HTTPServer) handleMFADisable(w http.ResponseWriter, r *http.Request) {
	s.handleMFAToggle(w, r, s.auth.DisableMFA)
}

func (s *HTTPServer) handleMFAToggle(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, code string) error) {
	id, _ := auth.IdentityFromContext(r.Context())
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := fn(r.Context(), id.UserID, req.Code); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.auth.Me(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, User: toUserDTO(u)})
}

// respondSession sets the session cookies and answers with the user.
func (s *HTTPServer) respondSession(w http.ResponseWriter, r *http.Request, session *services.Session) {
	if err := s.setSession(w, session); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, User: toUserDTO(session.User)})
}
