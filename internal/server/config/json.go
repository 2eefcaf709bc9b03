package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/flagx"
	"github.com/dmitrijs2005/thriftmarket/internal/timex"
)

// JsonConfig mirrors Config for decoding. Durations accept "15m" or integer
// nanoseconds. Keys missing from the file leave the current value alone.
type JsonConfig struct {
	Env              string `json:"env"`
	EndpointAddrHTTP string `json:"endpoint_addr_http"`
	DatabaseDSN      string `json:"database_dsn"`
	RedisAddr        string `json:"redis_addr"`
	LogLevel         string `json:"log_level"`

	SecretKey                    string         `json:"secret_key"`
	CSRFSecret                   string         `json:"csrf_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	CookieSecure                 *bool          `json:"cookie_secure"`
	ClientOrigin                 string         `json:"client_origin"`
	RateLimitRequests            *int           `json:"rate_limit_requests"`
	RateLimitWindow              timex.Duration `json:"rate_limit_window"`

	MFAIssuer        string         `json:"mfa_issuer"`
	MFAChallengeTTL  timex.Duration `json:"mfa_challenge_ttl"`
	CaptchaTTL       timex.Duration `json:"captcha_ttl"`
	LoginMaxAttempts int            `json:"login_max_attempts"`
	LockoutDuration  timex.Duration `json:"lockout_duration"`

	StripeSecretKey string         `json:"stripe_secret_key"`
	ProviderTimeout timex.Duration `json:"provider_timeout"`
	Currency        string         `json:"currency"`
	MinorUnitFactor int64          `json:"minor_unit_factor"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
}

// parseJson overlays the JSON file named by -c/-config (or THRIFT_CONFIG)
// onto config. It panics when the file is unreadable or malformed.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(ConfigEnvVar)
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.Env, c.Env)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.LogLevel, c.LogLevel)

	setString(&config.SecretKey, c.SecretKey)
	setString(&config.CSRFSecret, c.CSRFSecret)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	setString(&config.ClientOrigin, c.ClientOrigin)
	if c.RateLimitRequests != nil {
		config.RateLimitRequests = *c.RateLimitRequests
	}
	setDuration(&config.RateLimitWindow, c.RateLimitWindow)

	setString(&config.MFAIssuer, c.MFAIssuer)
	setDuration(&config.MFAChallengeTTL, c.MFAChallengeTTL)
	setDuration(&config.CaptchaTTL, c.CaptchaTTL)
	if c.LoginMaxAttempts > 0 {
		config.LoginMaxAttempts = c.LoginMaxAttempts
	}
	setDuration(&config.LockoutDuration, c.LockoutDuration)

	setString(&config.StripeSecretKey, c.StripeSecretKey)
	setDuration(&config.ProviderTimeout, c.ProviderTimeout)
	setString(&config.Currency, c.Currency)
	if c.MinorUnitFactor > 0 {
		config.MinorUnitFactor = c.MinorUnitFactor
	}

	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
