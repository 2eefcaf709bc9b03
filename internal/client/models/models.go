// Package models holds the shapes shopctl exchanges with the API.
package models

import "time"

type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	MFAEnabled bool   `json:"mfaEnabled"`
}

type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Credentials are the password-phase inputs, captcha included.
type Credentials struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	CaptchaID string `json:"captchaId"`
	Captcha   string `json:"captcha"`
}

// LoginResult is either a signed-in user or an MFA challenge handle.
type LoginResult struct {
	User        *User  `json:"user"`
	MfaRequired bool   `json:"mfaRequired"`
	TempToken   string `json:"tempToken"`
}

type Captcha struct {
	ID  string
	PNG []byte
}

type Enrollment struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauthUrl"`
	QRCode     string `json:"qrCode"`
}

// Intent is a payment handle. In simulation mode ClientSecret doubles as the
// intent id to confirm.
type Intent struct {
	ClientSecret string  `json:"clientSecret"`
	Amount       float64 `json:"amount"`
	IsSimulation bool    `json:"isSimulation"`
}

type OrderItem struct {
	Product string  `json:"product"`
	Price   float64 `json:"price"`
}

type Order struct {
	ID              string      `json:"id"`
	Buyer           string      `json:"buyer"`
	Items           []OrderItem `json:"items"`
	TotalAmount     float64     `json:"totalAmount"`
	Status          string      `json:"status"`
	PaymentIntentID string      `json:"paymentIntentId"`
	CreatedAt       time.Time   `json:"createdAt"`
}
