// Package jwt wraps token issuance and verification for the authentication
// core. Tokens are short-lived signed assertions of an identity id plus an
// opaque device-fingerprint claim; verification is pure and expiry is
// absolute.
package jwt
