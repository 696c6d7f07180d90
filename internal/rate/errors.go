package rate

import "errors"

// ErrThrottled indicates the key exhausted its window budget. It is expected
// control flow, never a fault; callers map it to their own rejection type.
var ErrThrottled = errors.New("rate limit exceeded")
