// Package audit records security-relevant events. Events are append-only:
// sinks write each one once and never rewrite it.
package audit

import (
	"context"
	"time"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeveritySecurity Severity = "security"
)

// Actions.
const (
	ActionLoginSuccess       = "LOGIN_SUCCESS"
	ActionLoginFailed        = "LOGIN_FAILED"
	ActionAccountLocked      = "ACCOUNT_LOCKED"
	ActionMFAChallengeIssued = "MFA_CHALLENGE_ISSUED"
	ActionMFAFailed          = "MFA_FAILED"
	ActionMFAEnabled         = "MFA_ENABLED"
	ActionMFADisabled        = "MFA_DISABLED"
	ActionPaymentFailed      = "PAYMENT_FAILED"
	ActionSecurityAlert      = "SECURITY_ALERT"
	ActionOrderPlaced        = "ORDER_PLACED"
	ActionCsrfRejected       = "CSRF_REJECTED"
)

var securityActions = map[string]bool{
	ActionAccountLocked: true,
	ActionMFAFailed:     true,
	ActionPaymentFailed: true,
	ActionSecurityAlert: true,
	ActionCsrfRejected:  true,
}

// SeverityOf classifies an action.
func SeverityOf(action string) Severity {
	if securityActions[action] {
		return SeveritySecurity
	}
	return SeverityInfo
}

type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	Severity  Severity  `json:"severity"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// RequestMeta is the client information attached to events recorded while
// serving a request.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type metaKey struct{}

func WithRequestMeta(ctx context.Context, m RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey{}, m)
}

func RequestMetaFromContext(ctx context.Context) RequestMeta {
	m, _ := ctx.Value(metaKey{}).(RequestMeta)
	return m
}
