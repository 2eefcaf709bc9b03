package httpserver

import (
	"net/http"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler builds the full route tree.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(securityHeadersMiddleware)
	r.Use(s.requestMetaMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.rescueMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)
		r.Use(middleware.RequestSize(maxBodyBytes))
		r.Use(s.csrfMiddleware)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/csrf-token", s.handleCSRFToken)
			r.Get("/captcha", s.handleCaptcha)
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/login/verify-mfa", s.handleVerifyMFA)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(s.sessionMiddleware)
				r.Get("/me", s.handleMe)
				r.Get("/activity", s.handleActivity)
				r.Post("/mfa/setup", s.handleMFASetup)
				r.Post("/mfa/enable", s.handleMFAEnable)
				r.Post("/mfa/disable", s.handleMFADisable)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.sessionMiddleware)
			r.Route("/payment", func(r chi.Router) {
				r.Use(requireRole(common.RoleBuyer, common.RoleSeller))
				r.Post("/create-intent", s.handleCreateIntent)
				r.Post("/confirm-order", s.handleConfirmOrder)
			})
			r.Get("/orders/mine", s.handleMyOrders)
		})
	})

	return r
}
