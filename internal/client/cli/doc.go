// Package cli implements shopctl, the ThriftMarket command-line client.
//
// Commands are cobra subcommands of NewRootCommand. Each invocation opens
// the cookie jar, runs one operation against the API and saves the jar, so
// a login carries over to later invocations.
//
//	shopctl login                 captcha, password, then MFA code if enabled
//	shopctl checkout <id>...      create an intent; simulation also confirms
//	shopctl confirm <intent> <id>...
//	shopctl orders
//	shopctl mfa setup | enable <code> | disable <code>
package cli
