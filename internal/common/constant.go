// Package common contains shared constants and sentinel errors used across
// ThriftMarket components.
package common

// Cookie and header names shared by the server and shopctl.
const (
	// AccessTokenCookieName carries the signed session JWT.
	AccessTokenCookieName = "token"
	// RefreshTokenCookieName carries the opaque server-stored refresh token.
	RefreshTokenCookieName = "refresh_token"
	// CSRFCookieName is the double-submit anti-forgery cookie. It is readable
	// by browser scripts so they can echo it in CSRFHeaderName.
	CSRFCookieName = "XSRF-TOKEN-V2"
	// CSRFHeaderName must repeat the CSRF cookie on every unsafe request.
	CSRFHeaderName = "X-XSRF-TOKEN"
	// CaptchaCookieName binds the browser to the captcha it was shown.
	CaptchaCookieName = "captcha_id"
)

// SimulatedIntentPrefix marks payment intents minted without a provider.
const SimulatedIntentPrefix = "mock_"

// Roles an identity can hold.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)
