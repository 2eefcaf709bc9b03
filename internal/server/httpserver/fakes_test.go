package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/dmitrijs2005/thriftmarket/internal/logging"
	"github.com/dmitrijs2005/thriftmarket/internal/server/audit"
	"github.com/dmitrijs2005/thriftmarket/internal/server/auth"
	"github.com/dmitrijs2005/thriftmarket/internal/server/config"
	"github.com/dmitrijs2005/thriftmarket/internal/server/metrics"
	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
	"github.com/dmitrijs2005/thriftmarket/internal/server/services"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeAuth struct {
	captchaID  string
	captchaPNG []byte

	registered *models.User
	regErr     error

	loginIn  services.PasswordInput
	loginRes *services.LoginResult
	loginErr error

	verifyRes *services.Session
	verifyErr error

	refreshRes *services.Session
	refreshErr error

	logoutToken string
	logoutCalls int

	me      *models.User
	meErr   error
	mePanic bool

	enrollment *auth.Enrollment
	toggleCode string
	toggleErr  error

	activityLimit int
	activity      []*models.Activity
}

func (f *fakeAuth) IssueCaptcha(context.Context) (string, []byte, error) {
	return f.captchaID, f.captchaPNG, nil
}

func (f *fakeAuth) Register(_ context.Context, in services.RegisterInput) (*models.User, error) {
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &models.User{ID: "u-new", Name: in.Name, Email: in.Email, Role: common.RoleBuyer}, nil
}

func (f *fakeAuth) Login(_ context.Context, in services.PasswordInput) (*services.LoginResult, error) {
	f.loginIn = in
	return f.loginRes, f.loginErr
}

func (f *fakeAuth) VerifyMFA(context.Context, services.MfaInput) (*services.Session, error) {
	return f.verifyRes, f.verifyErr
}

func (f *fakeAuth) Refresh(context.Context, string) (*services.Session, error) {
	return f.refreshRes, f.refreshErr
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	f.logoutCalls++
	f.logoutToken = token
	return nil
}

func (f *fakeAuth) Me(_ context.Context, userID string) (*models.User, error) {
	if f.mePanic {
		panic("boom")
	}
	if f.meErr != nil {
		return nil, f.meErr
	}
	if f.me != nil {
		return f.me, nil
	}
	return &models.User{ID: userID, Email: userID + "@example.com", Role: common.RoleBuyer}, nil
}

func (f *fakeAuth) SetupMFA(context.Context, string) (*auth.Enrollment, error) {
	return f.enrollment, nil
}

func (f *fakeAuth) EnableMFA(_ context.Context, _, code string) error {
	f.toggleCode = code
	return f.toggleErr
}

func (f *fakeAuth) DisableMFA(_ context.Context, _, code string) error {
	f.toggleCode = code
	return f.toggleErr
}

func (f *fakeAuth) RecentActivity(_ context.Context, _ string, limit int) ([]*models.Activity, error) {
	f.activityLimit = limit
	return f.activity, nil
}

type fakeCheckout struct {
	userID string
	ids    []string
	res    *services.CheckoutIntent
	err    error
}

func (f *fakeCheckout) CreateIntent(_ context.Context, userID string, ids []string) (*services.CheckoutIntent, error) {
	f.userID, f.ids = userID, ids
	return f.res, f.err
}

type fakeSettlement struct {
	intentID string
	ids      []string
	order    *models.Order
	err      error
	orders   []*models.Order
}

func (f *fakeSettlement) Confirm(_ context.Context, _, intentID string, ids []string) (*models.Order, error) {
	f.intentID, f.ids = intentID, ids
	return f.order, f.err
}

func (f *fakeSettlement) ListOrders(context.Context, string) ([]*models.Order, error) {
	return f.orders, nil
}

type captureSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureSink) Emit(_ context.Context, e audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *captureSink) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Action
	}
	return out
}

// ---- harness ----

type harness struct {
	cfg        *config.Config
	srv        *HTTPServer
	handler    http.Handler
	auth       *fakeAuth
	checkout   *fakeCheckout
	settlement *fakeSettlement
	sink       *captureSink
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	for _, m := range mutate {
		m(cfg)
	}

	h := &harness{
		cfg:        cfg,
		auth:       &fakeAuth{},
		checkout:   &fakeCheckout{},
		settlement: &fakeSettlement{},
		sink:       &captureSink{},
	}
	met := metrics.New()
	rec := audit.NewRecorder(h.sink, logging.NopLogger{}, met)
	h.srv = NewHTTPServer(cfg, logging.NopLogger{}, h.auth, h.checkout, h.settlement, rec, met, nil)
	h.handler = h.srv.Handler()
	return h
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	return rr
}

// unsafe builds a state-changing request that carries a valid CSRF pair.
func (h *harness) unsafe(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	token, err := h.srv.csrf.Issue()
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: common.CSRFCookieName, Value: token})
	req.Header.Set(common.CSRFHeaderName, token)
	return req
}

func (h *harness) withSession(t *testing.T, req *http.Request, userID, role string) *http.Request {
	t.Helper()
	tok, err := auth.GenerateToken(auth.Identity{UserID: userID, Role: role}, []byte(h.cfg.SecretKey), time.Minute)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: tok})
	return req
}

func responseCookies(rr *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rr.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}
