package auth

import (
	"bytes"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/dchest/captcha"
)

const (
	captchaLength = 6
	captchaWidth  = 240
	captchaHeight = 80
)

// NewCaptchaAnswer returns random digits as text, e.g. "407193".
func NewCaptchaAnswer() string {
	digits := captcha.RandomDigits(captchaLength)
	var b strings.Builder
	for _, d := range digits {
		b.WriteByte('0' + d)
	}
	return b.String()
}

// RenderCaptcha draws answer as a distorted PNG. id seeds the distortion.
func RenderCaptcha(id, answer string) ([]byte, error) {
	digits := make([]byte, 0, len(answer))
	for _, r := range answer {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("captcha answer must be digits")
		}
		digits = append(digits, byte(r-'0'))
	}

	var buf bytes.Buffer
	if _, err := captcha.NewImage(id, digits, captchaWidth, captchaHeight).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render captcha: %w", err)
	}
	return buf.Bytes(), nil
}

// CaptchaMatches compares a user's attempt with the stored answer.
func CaptchaMatches(attempt, answer string) bool {
	attempt = strings.TrimSpace(attempt)
	if attempt == "" || answer == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(attempt), []byte(answer)) == 1
}
