package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/thriftmarket/internal/common"
)

const csrfNonceSize = 32

// CSRF issues and checks double-submit tokens of the form
// base64url(nonce) "." base64url(HMAC-SHA256(nonce)).
type CSRF struct {
	secret []byte
}

func NewCSRF(secret []byte) *CSRF {
	return &CSRF{secret: secret}
}

func (c *CSRF) Issue() (string, error) {
	nonce := make([]byte, csrfNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("csrf nonce: %w", err)
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(nonce) + "." + enc.EncodeToString(c.sign(nonce)), nil
}

// Valid reports whether token was issued with this secret.
func (c *CSRF) Valid(token string) bool {
	n, s, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	nonce, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil || len(nonce) != csrfNonceSize {
		return false
	}
	sig, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return false
	}
	return hmac.Equal(sig, c.sign(nonce))
}

// Check accepts an unsafe request only when the cookie is genuine and the
// header echoes it exactly.
func (c *CSRF) Check(cookie, header string) error {
	if cookie == "" || header == "" {
		return common.ErrCsrfRejected
	}
	if !c.Valid(cookie) {
		return common.ErrCsrfRejected
	}
	if subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
		return common.ErrCsrfRejected
	}
	return nil
}

func (c *CSRF) sign(nonce []byte) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(nonce)
	return mac.Sum(nil)
}
