package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
)

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Enrollment is what a user needs to add the account to an authenticator app.
type Enrollment struct {
	Secret string
	URL    string
	// QRCode is a data:image/png;base64 URL of URL.
	QRCode string
}

// TOTP checks six-digit, 30-second codes with one step of clock skew each way.
type TOTP struct {
	issuer string
	now    func() time.Time
}

func NewTOTP(issuer string) *TOTP {
	return &TOTP{issuer: issuer, now: time.Now}
}

func (t *TOTP) Enroll(account string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.issuer,
		AccountName: account,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}

	return &Enrollment{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// Validate reports whether code is current for secret. Empty secrets never
// validate.
func (t *TOTP) Validate(code, secret string) bool {
	code = strings.TrimSpace(code)
	if secret == "" || len(code) != totpOpts.Digits.Length() {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, t.now().UTC(), totpOpts)
	return err == nil && ok
}
