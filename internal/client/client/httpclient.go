package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/client/models"
	"github.com/dmitrijs2005/thriftmarket/internal/common"
)

const (
	csrfPath    = "/api/auth/csrf-token"
	refreshPath = "/api/auth/refresh"

	// CaptchaIDHeader mirrors the server's captcha id header.
	CaptchaIDHeader = "X-Captcha-Id"
)

type HTTPClient struct {
	base *url.URL
	http *http.Client
	jar  *Jar
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a client for serverURL whose cookies persist in
// jarPath.
func NewHTTPClient(serverURL string, timeout time.Duration, jarPath string) (*HTTPClient, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("server url %q: scheme and host required", serverURL)
	}

	jar, err := OpenJar(jarPath, base)
	if err != nil {
		return nil, err
	}

	return &HTTPClient{
		base: base,
		http: &http.Client{Timeout: timeout, Jar: jar},
		jar:  jar,
	}, nil
}

// Close persists the cookie jar.
func (c *HTTPClient) Close() error {
	return c.jar.Save()
}

func (c *HTTPClient) Captcha(ctx context.Context) (*models.Captcha, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/auth/captcha"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(resp)
	}
	img, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &models.Captcha{ID: resp.Header.Get(CaptchaIDHeader), PNG: img}, nil
}

func (c *HTTPClient) Register(ctx context.Context, r models.Registration) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/auth/register", r, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *HTTPClient) Login(ctx context.Context, cr models.Credentials) (*models.LoginResult, error) {
	var out models.LoginResult
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", cr, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) VerifyMFA(ctx context.Context, tempToken, code string) (*models.User, error) {
	in := map[string]string{"tempToken": tempToken, "code": code}
	var out struct {
		User *models.User `json:"user"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/auth/login/verify-mfa", in, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *HTTPClient) SetupMFA(ctx context.Context) (*models.Enrollment, error) {
	var out models.Enrollment
	if err := c.call(ctx, http.MethodPost, "/api/auth/mfa/setup", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) EnableMFA(ctx context.Context, code string) error {
	return c.call(ctx, http.MethodPost, "/api/auth/mfa/enable", map[string]string{"code": code}, nil)
}

func (c *HTTPClient) DisableMFA(ctx context.Context, code string) error {
	return c.call(ctx, http.MethodPost, "/api/auth/mfa/disable", map[string]string{"code": code}, nil)
}

type itemRef struct {
	ID string `json:"id"`
}

func itemRefs(ids []string) []itemRef {
	out := make([]itemRef, len(ids))
	for i, id := range ids {
		out[i] = itemRef{ID: id}
	}
	return out
}

func (c *HTTPClient) CreateIntent(ctx context.Context, productIDs []string) (*models.Intent, error) {
	in := map[string]any{"items": itemRefs(productIDs)}
	var out models.Intent
	if err := c.call(ctx, http.MethodPost, "/api/payment/create-intent", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ConfirmOrder(ctx context.Context, intentID string, productIDs []string) (*models.Order, error) {
	in := map[string]any{"paymentIntentId": intentID, "items": itemRefs(productIDs)}
	var out struct {
		Data *models.Order `json:"data"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/payment/confirm-order", in, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *HTTPClient) MyOrders(ctx context.Context) ([]*models.Order, error) {
	var out struct {
		Data []*models.Order `json:"data"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/orders/mine", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// call sends one JSON request. An expired access token is refreshed once
// and the request replayed.
func (c *HTTPClient) call(ctx context.Context, method, path string, in, out any) error {
	err := c.send(ctx, method, path, in, out)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != common.ErrTokenExpired.Error() || path == refreshPath {
		return err
	}
	if rerr := c.send(ctx, http.MethodPost, refreshPath, nil, nil); rerr != nil {
		return err
	}
	return c.send(ctx, method, path, in, out)
}

func (c *HTTPClient) send(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !isSafeMethod(method) {
		token, err := c.csrfToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set(common.CSRFHeaderName, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// csrfToken returns the CSRF cookie, fetching one first when the jar has
// none.
func (c *HTTPClient) csrfToken(ctx context.Context) (string, error) {
	if token := c.jar.Value(common.CSRFCookieName); token != "" {
		return token, nil
	}
	var out struct {
		Token string `json:"csrfToken"`
	}
	if err := c.send(ctx, http.MethodGet, csrfPath, nil, &out); err != nil {
		return "", fmt.Errorf("fetch csrf token: %w", err)
	}
	return out.Token, nil
}

func (c *HTTPClient) url(path string) string {
	return c.base.JoinPath(path).String()
}

func decodeAPIError(resp *http.Response) error {
	e := &APIError{Status: resp.StatusCode}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(e); err != nil || e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
