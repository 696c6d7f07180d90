// Package internal holds helpers shared across the root authcore package:
// fingerprint and code hashing, random code generation, and IP set matching.
package internal
