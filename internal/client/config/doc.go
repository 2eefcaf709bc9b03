// Package config loads runtime configuration for shopctl.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/--config or SHOPCTL_CONFIG.
//  3. Command-line flags bound by BindFlags, which override earlier values.
//
// # JSON schema
//
// Durations may be strings like "10s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://localhost:5000",
//	  "request_timeout": "10s",
//	  "cookie_jar_path": "/home/me/.shopctl/cookies.json"
//	}
package config
