// Package rate implements the in-memory sliding-window request limiter.
//
// Buckets are ephemeral shared state: each Admit performs the read, compare
// and increment as one unit under the limiter lock, so two concurrent
// requests can never both be admitted on a stale count. Limiters are plain
// injected objects; independent instances share nothing.
package rate
