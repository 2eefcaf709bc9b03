package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/dmitrijs2005/thriftmarket/internal/dbx"
	"github.com/dmitrijs2005/thriftmarket/internal/logging"
	"github.com/dmitrijs2005/thriftmarket/internal/server/audit"
	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
	activitiesrepo "github.com/dmitrijs2005/thriftmarket/internal/server/repositories/activities"
	ordersrepo "github.com/dmitrijs2005/thriftmarket/internal/server/repositories/orders"
	productsrepo "github.com/dmitrijs2005/thriftmarket/internal/server/repositories/products"
	refreshtokensrepo "github.com/dmitrijs2005/thriftmarket/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/thriftmarket/internal/server/repositories/users"
	"github.com/google/uuid"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type captureSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *captureSink) Emit(_ context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

func newRecorder() (*audit.Recorder, *captureSink) {
	sink := &captureSink{}
	return audit.NewRecorder(sink, logging.NopLogger{}, nil), sink
}

// --- users ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	err    error
	resets int
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byID: map[string]*models.User{}}
	for _, u := range users {
		r.byID[u.ID] = u
	}
	return r
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsersRepo) RecordFailedLogin(_ context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return 0, nil, common.ErrorNotFound
	}
	if u.FailedLoginAttempts+1 >= maxAttempts {
		u.FailedLoginAttempts = 0
		until := lockUntil
		u.LockUntil = &until
	} else {
		u.FailedLoginAttempts++
	}
	return u.FailedLoginAttempts, u.LockUntil, nil
}

func (f *fakeUsersRepo) ResetLoginFailures(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	f.resets++
	u.FailedLoginAttempts = 0
	u.LockUntil = nil
	return nil
}

func (f *fakeUsersRepo) SetMFASecret(_ context.Context, id string, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.MFASecret = secret
	u.MFAEnabled = false
	return nil
}

func (f *fakeUsersRepo) EnableMFA(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.MFASecret == "" {
		return common.ErrorNotFound
	}
	u.MFAEnabled = true
	return nil
}

func (f *fakeUsersRepo) DisableMFA(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.MFAEnabled = false
	u.MFASecret = ""
	return nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	mu      sync.Mutex
	tokens  map[string]*models.RefreshToken
	takeErr error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID string, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = &models.RefreshToken{ID: uuid.NewString(), UserID: userID, Token: token, Expires: expiresAt}
	return nil
}

// has is a test helper, not part of the repository contract.
func (f *fakeRefreshRepo) has(token string) (*models.RefreshToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	return t, ok
}

func (f *fakeRefreshRepo) Take(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.takeErr != nil {
		return nil, f.takeErr
	}
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.tokens, token)
	return t, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, t := range f.tokens {
		if t.Expired(now) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

// --- products ---

type fakeProductsRepo struct {
	mu         sync.Mutex
	byID       map[string]*models.Product
	decrements []string
	getErr     error
	getCalls   int
}

func newFakeProductsRepo(products ...*models.Product) *fakeProductsRepo {
	r := &fakeProductsRepo{byID: map[string]*models.Product{}}
	for _, p := range products {
		r.byID[p.ID] = p
	}
	return r
}

func (f *fakeProductsRepo) GetByIDs(_ context.Context, ids []string) ([]*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	var out []*models.Product
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeProductsRepo) Decrement(_ context.Context, id string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok || p.Quantity <= 0 {
		return nil, common.ErrOutOfStock
	}
	f.decrements = append(f.decrements, id)
	p.Quantity--
	p.IsSold = p.Quantity == 0
	c := *p
	return &c, nil
}

// --- orders ---

type fakeOrdersRepo struct {
	mu      sync.Mutex
	orders  []*models.Order
	intents map[string]bool
}

func newFakeOrdersRepo() *fakeOrdersRepo {
	return &fakeOrdersRepo{intents: map[string]bool{}}
}

func (f *fakeOrdersRepo) Create(_ context.Context, o *models.Order) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.intents[o.PaymentIntentID] {
		return nil, common.ErrorAlreadyExists
	}
	f.intents[o.PaymentIntentID] = true
	o.ID = uuid.NewString()
	o.CreatedAt = time.Now()
	f.orders = append(f.orders, o)
	return o, nil
}

func (f *fakeOrdersRepo) ListByBuyer(_ context.Context, buyerID string) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Order
	for _, o := range f.orders {
		if o.BuyerID == buyerID {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// --- activities ---

type fakeActivitiesRepo struct {
	rows []*models.Activity
}

func (f *fakeActivitiesRepo) Append(_ context.Context, a *models.Activity) error {
	f.rows = append(f.rows, a)
	return nil
}

func (f *fakeActivitiesRepo) ListByUser(_ context.Context, userID string, limit int) ([]*models.Activity, error) {
	var out []*models.Activity
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if f.rows[i].UserID == userID {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	p *fakeProductsRepo
	o *fakeOrdersRepo
	a *fakeActivitiesRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: newFakeUsersRepo(),
		r: newFakeRefreshRepo(),
		p: newFakeProductsRepo(),
		o: newFakeOrdersRepo(),
		a: &fakeActivitiesRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error        { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Products(dbx.DBTX) productsrepo.Repository           { return m.p }
func (m *fakeRepoManager) Orders(dbx.DBTX) ordersrepo.Repository               { return m.o }
func (m *fakeRepoManager) Activities(dbx.DBTX) activitiesrepo.Repository       { return m.a }
