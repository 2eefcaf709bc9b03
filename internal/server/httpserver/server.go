// Package httpserver exposes the ThriftMarket REST API under /api: session
// and CSRF guards, the step-up login endpoints and the checkout endpoints.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/logging"
	"github.com/dmitrijs2005/thriftmarket/internal/server/audit"
	"github.com/dmitrijs2005/thriftmarket/internal/server/auth"
	"github.com/dmitrijs2005/thriftmarket/internal/server/config"
	"github.com/dmitrijs2005/thriftmarket/internal/server/metrics"
	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
	"github.com/dmitrijs2005/thriftmarket/internal/server/ratelimit"
	"github.com/dmitrijs2005/thriftmarket/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// Authenticator is the identity side of the API.
type Authenticator interface {
	IssueCaptcha(ctx context.Context) (string, []byte, error)
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, in services.PasswordInput) (*services.LoginResult, error)
	VerifyMFA(ctx context.Context, in services.MfaInput) (*services.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*services.Session, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID string) (*models.User, error)
	SetupMFA(ctx context.Context, userID string) (*auth.Enrollment, error)
	EnableMFA(ctx context.Context, userID, code string) error
	DisableMFA(ctx context.Context, userID, code string) error
	RecentActivity(ctx context.Context, userID string, limit int) ([]*models.Activity, error)
}

// Checkout provisions payment intents.
type Checkout interface {
	CreateIntent(ctx context.Context, userID string, productIDs []string) (*services.CheckoutIntent, error)
}

// Settlement confirms paid intents into orders.
type Settlement interface {
	Confirm(ctx context.Context, userID, intentID string, productIDs []string) (*models.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*models.Order, error)
}

type HTTPServer struct {
	address    string
	logger     logging.Logger
	auth       Authenticator
	checkout   Checkout
	settlement Settlement
	csrf       *auth.CSRF
	audit      *audit.Recorder
	metrics    *metrics.Metrics
	limiter    ratelimit.Limiter

	jwtSecret       []byte
	production      bool
	cookieSecure    bool
	clientOrigin    string
	accessTTL       time.Duration
	refreshTTL      time.Duration
	captchaTTL      time.Duration
	minorUnitFactor int64
}

// NewHTTPServer wires the API. A nil limiter falls back to per-process
// counters sized from c; RateLimitRequests of zero turns limiting off.
func NewHTTPServer(c *config.Config, l logging.Logger, a Authenticator, co Checkout, st Settlement,
	rec *audit.Recorder, m *metrics.Metrics, lim ratelimit.Limiter) *HTTPServer {
	factor := c.MinorUnitFactor
	if factor <= 0 {
		factor = 100
	}
	if c.RateLimitRequests <= 0 {
		lim = nil
	} else if lim == nil {
		lim = ratelimit.NewMemoryLimiter(c.RateLimitRequests, c.RateLimitWindow)
	}
	return &HTTPServer{
		address:         c.EndpointAddrHTTP,
		logger:          l.With("module", "http_server"),
		auth:            a,
		checkout:        co,
		settlement:      st,
		csrf:            auth.NewCSRF([]byte(c.CSRFSecret)),
		audit:           rec,
		metrics:         m,
		limiter:         lim,
		jwtSecret:       []byte(c.SecretKey),
		production:      c.IsProduction(),
		cookieSecure:    c.CookieSecure,
		clientOrigin:    c.ClientOrigin,
		accessTTL:       c.AccessTokenValidityDuration,
		refreshTTL:      c.RefreshTokenValidityDuration,
		captchaTTL:      c.CaptchaTTL,
		minorUnitFactor: factor,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
