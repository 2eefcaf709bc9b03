// Package services contains the server-side business logic: the step-up
// login machine and session lifecycle, pricing, intent brokering and order
// settlement.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
	"github.com/dmitrijs2005/thriftmarket/internal/dbx"
	"github.com/dmitrijs2005/thriftmarket/internal/logging"
	"github.com/dmitrijs2005/thriftmarket/internal/server/audit"
	"github.com/dmitrijs2005/thriftmarket/internal/server/auth"
	"github.com/dmitrijs2005/thriftmarket/internal/server/challenges"
	"github.com/dmitrijs2005/thriftmarket/internal/server/config"
	"github.com/dmitrijs2005/thriftmarket/internal/server/metrics"
	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
	"github.com/dmitrijs2005/thriftmarket/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Login outcomes reported to metrics.
const (
	loginSuccess            = "success"
	loginMfaRequired        = "mfa_required"
	loginInvalidCredentials = "invalid_credentials"
	loginLocked             = "locked"
	loginInvalidCaptcha     = "invalid_captcha"
	loginMfaFailed          = "mfa_failed"
)

// dummyHash is compared against when the email is unknown so that both
// paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("thriftmarket-dummy-password"), bcrypt.DefaultCost)

// LoginState names the two states of the login machine.
type LoginState int

const (
	PasswordPhase LoginState = iota
	MfaPhase
)

// PasswordInput drives the machine out of PasswordPhase.
type PasswordInput struct {
	Email         string
	Password      string
	CaptchaID     string
	CaptchaAnswer string
}

// MfaInput drives the machine out of MfaPhase.
type MfaInput struct {
	Challenge string
	Code      string
}

// Session is a freshly minted access/refresh pair.
type Session struct {
	AccessToken  string
	RefreshToken string
	Identity     auth.Identity
	User         *models.User
}

// LoginResult is the outcome of a successful password phase: either a
// session, or a challenge that moves the caller into MfaPhase.
type LoginResult struct {
	Session   *Session
	Challenge string
}

// Next reports the state the caller is in after this result.
func (r *LoginResult) Next() LoginState {
	if r.Session == nil {
		return MfaPhase
	}
	return PasswordPhase
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// AuthService owns identities, sessions and the step-up login machine.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	challenges  challenges.Store
	totp        *auth.TOTP
	audit       *audit.Recorder
	metrics     *metrics.Metrics
	logger      logging.Logger

	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	mfaChallengeTTL              time.Duration
	captchaTTL                   time.Duration
	maxAttempts                  int
	lockoutDuration              time.Duration

	now func() time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, store challenges.Store,
	rec *audit.Recorder, met *metrics.Metrics, logger logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		challenges:                   store,
		totp:                         auth.NewTOTP(cfg.MFAIssuer),
		audit:                        rec,
		metrics:                      met,
		logger:                       logger.With("module", "auth"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		mfaChallengeTTL:              cfg.MFAChallengeTTL,
		captchaTTL:                   cfg.CaptchaTTL,
		maxAttempts:                  cfg.LoginMaxAttempts,
		lockoutDuration:              cfg.LockoutDuration,
		now:                          time.Now,
	}
}

// Register creates a buyer or seller. Admins cannot be self-registered.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email is not valid", common.ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, minPasswordLength)
	}

	role := in.Role
	switch role {
	case "":
		role = common.RoleBuyer
	case common.RoleBuyer, common.RoleSeller:
	default:
		return nil, fmt.Errorf("%w: role %q cannot be registered", common.ErrValidation, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// IssueCaptcha stores a fresh answer and returns its id and rendered image.
func (s *AuthService) IssueCaptcha(ctx context.Context) (string, []byte, error) {
	id := uuid.NewString()
	answer := auth.NewCaptchaAnswer()

	if err := s.challenges.Put(ctx, challenges.CaptchaPrefix+id, answer, s.captchaTTL); err != nil {
		return "", nil, fmt.Errorf("store captcha: %w", err)
	}
	img, err := auth.RenderCaptcha(id, answer)
	if err != nil {
		return "", nil, err
	}
	return id, img, nil
}

// Login runs the password phase. The captcha is consumed whatever the
// outcome. A correct password on an MFA account yields a challenge, never a
// session.
func (s *AuthService) Login(ctx context.Context, in PasswordInput) (*LoginResult, error) {
	if err := s.consumeCaptcha(ctx, in.CaptchaID, in.CaptchaAnswer); err != nil {
		s.metrics.Login(loginInvalidCaptcha)
		return nil, err
	}

	users := s.repomanager.Users(s.db)
	user, err := users.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(in.Password))
			s.metrics.Login(loginInvalidCredentials)
			s.audit.Recordf(ctx, "", audit.ActionLoginFailed, "unknown email %s", normalizeEmail(in.Email))
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	now := s.now()
	if locked, left := user.IsLocked(now); locked {
		s.metrics.Login(loginLocked)
		s.audit.Record(ctx, user.ID, audit.ActionLoginFailed, "attempt on locked account")
		return nil, &common.LockoutError{Remaining: left}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, s.registerFailure(ctx, user, now)
	}

	if user.FailedLoginAttempts > 0 || user.LockUntil != nil {
		if err := users.ResetLoginFailures(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("error resetting login failures: %w", err)
		}
	}

	if user.MFAEnabled {
		challenge := uuid.NewString()
		if err := s.challenges.Put(ctx, challenges.MFAPrefix+challenge, user.ID, s.mfaChallengeTTL); err != nil {
			return nil, fmt.Errorf("store mfa challenge: %w", err)
		}
		s.metrics.Login(loginMfaRequired)
		s.audit.Record(ctx, user.ID, audit.ActionMFAChallengeIssued, "")
		return &LoginResult{Challenge: challenge}, nil
	}

	session, err := s.mintSession(ctx, s.db, user)
	if err != nil {
		return nil, err
	}
	s.metrics.Login(loginSuccess)
	s.audit.Record(ctx, user.ID, audit.ActionLoginSuccess, "")
	return &LoginResult{Session: session}, nil
}

// VerifyMFA runs the MFA phase. A wrong code leaves the challenge usable
// until it expires; a right one consumes it.
func (s *AuthService) VerifyMFA(ctx context.Context, in MfaInput) (*Session, error) {
	if in.Challenge == "" {
		return nil, common.ErrChallengeExpired
	}
	key := challenges.MFAPrefix + in.Challenge

	userID, err := s.challenges.Get(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrChallengeExpired
		}
		return nil, fmt.Errorf("load mfa challenge: %w", err)
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if !user.MFAEnabled {
		return nil, common.ErrMfaNotConfigured
	}
	if locked, left := user.IsLocked(s.now()); locked {
		return nil, &common.LockoutError{Remaining: left}
	}

	if !s.totp.Validate(in.Code, user.MFASecret) {
		s.metrics.Login(loginMfaFailed)
		s.audit.Record(ctx, user.ID, audit.ActionMFAFailed, "invalid code at login")
		return nil, common.ErrInvalidMfaCode
	}

	if _, err := s.challenges.Take(ctx, key); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrChallengeExpired
		}
		return nil, fmt.Errorf("consume mfa challenge: %w", err)
	}

	session, err := s.mintSession(ctx, s.db, user)
	if err != nil {
		return nil, err
	}
	s.metrics.Login(loginSuccess)
	s.audit.Record(ctx, user.ID, audit.ActionLoginSuccess, "mfa")
	return session, nil
}

// Refresh rotates a refresh token inside one transaction and mints a new
// session for the same user. An expired token is left for the sweeper.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, common.ErrUnauthenticated
	}

	var session *Session
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Take(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUnauthenticated
			}
			return fmt.Errorf("error taking refresh token: %w", err)
		}
		if token.Expired(s.now()) {
			return common.ErrRefreshTokenExpired
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("error loading user: %w", err)
		}
		session, err = s.mintSession(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Logout revokes the refresh token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// RecentActivity returns the caller's latest audit rows.
func (s *AuthService) RecentActivity(ctx context.Context, userID string, limit int) ([]*models.Activity, error) {
	return s.repomanager.Activities(s.db).ListByUser(ctx, userID, limit)
}

// PurgeExpiredSessions drops refresh tokens that can no longer be redeemed.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.now())
}

// SetupMFA stores a pending secret. MFA stays off until EnableMFA sees a
// valid code for it.
func (s *AuthService) SetupMFA(ctx context.Context, userID string) (*auth.Enrollment, error) {
	users := s.repomanager.Users(s.db)
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if user.MFAEnabled {
		return nil, common.ErrMfaAlreadyEnabled
	}

	enrollment, err := s.totp.Enroll(user.Email)
	if err != nil {
		return nil, err
	}
	if err := users.SetMFASecret(ctx, user.ID, enrollment.Secret); err != nil {
		return nil, fmt.Errorf("error saving mfa secret: %w", err)
	}
	return enrollment, nil
}

func (s *AuthService) EnableMFA(ctx context.Context, userID, code string) error {
	users := s.repomanager.Users(s.db)
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error loading user: %w", err)
	}
	if user.MFAEnabled {
		return common.ErrMfaAlreadyEnabled
	}
	if user.MFASecret == "" {
		return common.ErrMfaNotConfigured
	}
	if !s.totp.Validate(code, user.MFASecret) {
		s.audit.Record(ctx, user.ID, audit.ActionMFAFailed, "invalid code at enrollment")
		return common.ErrInvalidMfaCode
	}
	if err := users.EnableMFA(ctx, user.ID); err != nil {
		return fmt.Errorf("error enabling mfa: %w", err)
	}
	s.audit.Record(ctx, user.ID, audit.ActionMFAEnabled, "")
	return nil
}

func (s *AuthService) DisableMFA(ctx context.Context, userID, code string) error {
	users := s.repomanager.Users(s.db)
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error loading user: %w", err)
	}
	if !user.MFAEnabled {
		return common.ErrMfaNotConfigured
	}
	if !s.totp.Validate(code, user.MFASecret) {
		s.audit.Record(ctx, user.ID, audit.ActionMFAFailed, "invalid code at disable")
		return common.ErrInvalidMfaCode
	}
	if err := users.DisableMFA(ctx, user.ID); err != nil {
		return fmt.Errorf("error disabling mfa: %w", err)
	}
	s.audit.Record(ctx, user.ID, audit.ActionMFADisabled, "")
	return nil
}

// --- helpers below ---

func (s *AuthService) consumeCaptcha(ctx context.Context, id, attempt string) error {
	if id == "" {
		return common.ErrInvalidCaptcha
	}
	answer, err := s.challenges.Take(ctx, challenges.CaptchaPrefix+id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidCaptcha
		}
		return fmt.Errorf("load captcha: %w", err)
	}
	if !auth.CaptchaMatches(attempt, answer) {
		return common.ErrInvalidCaptcha
	}
	return nil
}

// registerFailure counts a wrong password and turns the threshold-reaching
// failure into a lockout.
func (s *AuthService) registerFailure(ctx context.Context, user *models.User, now time.Time) error {
	attempts, lockUntil, err := s.repomanager.Users(s.db).RecordFailedLogin(ctx, user.ID, s.maxAttempts, now.Add(s.lockoutDuration))
	if err != nil {
		return fmt.Errorf("error recording failed login: %w", err)
	}

	if lockUntil != nil && lockUntil.After(now) {
		s.metrics.Login(loginLocked)
		s.audit.Recordf(ctx, user.ID, audit.ActionAccountLocked, "locked for %s after %d failed attempts", s.lockoutDuration, s.maxAttempts)
		return &common.LockoutError{Remaining: lockUntil.Sub(now)}
	}

	remaining := s.maxAttempts - attempts
	if remaining < 0 {
		remaining = 0
	}
	s.metrics.Login(loginInvalidCredentials)
	s.audit.Recordf(ctx, user.ID, audit.ActionLoginFailed, "bad password, %d attempt(s) left", remaining)
	return &common.CredentialsError{RemainingAttempts: remaining}
}

func (s *AuthService) mintSession(ctx context.Context, db dbx.DBTX, user *models.User) (*Session, error) {
	id := auth.Identity{UserID: user.ID, Role: user.Role}

	access, err := auth.GenerateToken(id, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.repomanager.RefreshTokens(db).Create(ctx, user.ID, refresh, s.now().Add(s.refreshTokenValidityDuration)); err != nil {
		return nil, fmt.Errorf("error saving refresh token: %w", err)
	}

	return &Session{AccessToken: access, RefreshToken: refresh, Identity: id, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
