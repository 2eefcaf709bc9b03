// Package services contains application services for shopctl. This file
// drives the step-up login: captcha, password, then an MFA code when the
// account asks for one.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/thriftmarket/internal/client/client"
	"github.com/dmitrijs2005/thriftmarket/internal/client/models"
)

// ErrNoCaptchaID means the server answered the captcha request without an id.
var ErrNoCaptchaID = errors.New("server did not return a captcha id")

// Prompter asks the user for the values only a human can supply.
type Prompter interface {
	CaptchaAnswer(ctx context.Context, png []byte) (string, error)
	MFACode(ctx context.Context) (string, error)
}

// AuthService defines the account operations of the CLI.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Login(ctx context.Context, email, password string, p Prompter) (*models.User, error)
	Register(ctx context.Context, r models.Registration) (*models.User, error)
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) (*models.User, error)
	SetupMFA(ctx context.Context) (*models.Enrollment, error)
	EnableMFA(ctx context.Context, code string) error
	DisableMFA(ctx context.Context, code string) error
}

type authService struct {
	client client.Client
}

func NewAuthService(c client.Client) AuthService {
	return &authService{client: c}
}

// Login fetches a captcha, submits the credentials and, when the account
// has MFA, completes the second phase with a code from p.
func (a *authService) Login(ctx context.Context, email, password string, p Prompter) (*models.User, error) {
	captcha, err := a.client.Captcha(ctx)
	if err != nil {
		return nil, fmt.Errorf("captcha: %w", err)
	}
	if captcha.ID == "" {
		return nil, ErrNoCaptchaID
	}
	answer, err := p.CaptchaAnswer(ctx, captcha.PNG)
	if err != nil {
		return nil, err
	}

	res, err := a.client.Login(ctx, models.Credentials{
		Email:     email,
		Password:  password,
		CaptchaID: captcha.ID,
		Captcha:   answer,
	})
	if err != nil {
		return nil, err
	}
	if !res.MfaRequired {
		return res.User, nil
	}

	code, err := p.MFACode(ctx)
	if err != nil {
		return nil, err
	}
	return a.client.VerifyMFA(ctx, res.TempToken, code)
}

func (a *authService) Register(ctx context.Context, r models.Registration) (*models.User, error) {
	return a.client.Register(ctx, r)
}

func (a *authService) Logout(ctx context.Context) error {
	return a.client.Logout(ctx)
}

func (a *authService) WhoAmI(ctx context.Context) (*models.User, error) {
	return a.client.Me(ctx)
}

func (a *authService) SetupMFA(ctx context.Context) (*models.Enrollment, error) {
	return a.client.SetupMFA(ctx)
}

func (a *authService) EnableMFA(ctx context.Context, code string) error {
	return a.client.EnableMFA(ctx, code)
}

func (a *authService) DisableMFA(ctx context.Context, code string) error {
	return a.client.DisableMFA(ctx, code)
}
