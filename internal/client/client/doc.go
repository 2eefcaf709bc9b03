// Package client talks to the ThriftMarket REST API on behalf of shopctl.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface).
//  2. An HTTP implementation (see HTTPClient) that keeps the session and
//     CSRF cookies in a Jar, echoes the CSRF cookie on unsafe requests and
//     transparently refreshes an expired access token once.
//  3. A file-backed cookie Jar so a login survives between invocations.
//
// # Error Handling
//
// Transport failures wrap ErrUnavailable. Error responses become *APIError,
// which matches ErrUnauthorized under errors.Is for 401 responses.
package client
