// Package challenges keeps short-lived secrets that outlive one request but
// not a session: MFA challenge tokens, captcha answers and single-use
// settlement markers.
package challenges

import (
	"context"
	"time"
)

// Store is a TTL key-value store. Get and Take return common.ErrorNotFound
// for absent or expired keys.
type Store interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	// Take reads and deletes key atomically; of two concurrent callers only
	// one gets the value.
	Take(ctx context.Context, key string) (string, error)
	// Claim sets key only if it is absent and reports whether it did.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release deletes key. Absent keys are not an error.
	Release(ctx context.Context, key string) error
}

// Key namespaces.
const (
	MFAPrefix        = "mfa:"
	CaptchaPrefix    = "captcha:"
	SettlementPrefix = "settled:"
)
