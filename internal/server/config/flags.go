package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/flagx"
)

var serverFlags = []string{
	"-a", "-d", "-s", "-x", "-t", "-r", "-u", "-p", "-b", "-g", "-e",
	"-env", "-redis", "-stripe-key", "-origin", "-log-level", "-secure-cookies",
}

// parseFlags overlays command-line flags onto config.
//
//	-a string         HTTP bind address (e.g. ":5000")
//	-d string         PostgreSQL DSN
//	-s string         JWT HMAC secret
//	-x string         CSRF HMAC secret
//	-t int            access token validity, minutes
//	-r int            refresh token validity, minutes
//	-u/-p string      S3 user and password
//	-b/-g/-e string   S3 bucket, region, endpoint
//	-env string       "production" masks internal errors
//	-redis string     Redis address; empty keeps challenges in memory
//	-stripe-key       provider secret key; empty runs in simulation
//	-origin string    allowed CORS origin
//	-log-level        debug, info, warn or error
//	-secure-cookies   mark cookies Secure
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret key")
	fs.StringVar(&config.CSRFSecret, "x", config.CSRFSecret, "CSRF secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 audit bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.Env, "env", config.Env, "environment name")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.StripeSecretKey, "stripe-key", config.StripeSecretKey, "payment provider secret key")
	fs.StringVar(&config.ClientOrigin, "origin", config.ClientOrigin, "allowed CORS origin")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.BoolVar(&config.CookieSecure, "secure-cookies", config.CookieSecure, "mark cookies Secure")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
