package jquants

import "fmt"

// AuthError means every credential path failed: the refresh-token exchange
// was rejected and the password bootstrap was unavailable or also failed.
// It is never retried beyond the token manager's own fallback chain.
type AuthError struct {
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jquants auth failed: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("jquants auth failed: %s", e.Detail)
}

func (e *AuthError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx response from the provider after retries are
// exhausted. Body is truncated for diagnosis.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("jquants upstream error: status %d: %s", e.Status, e.Body)
}

// Retryable reports whether the upstream failure was transient (429/5xx).
func (e *UpstreamError) Retryable() bool {
	return e.Status >= 500 || e.Status == 429
}

// ErrNoData marks an empty upstream result for a required lookup.
var ErrNoData = fmt.Errorf("jquants: no data found")

const maxErrorBody = 512

// truncateBody bounds upstream error bodies carried in errors.
func truncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
