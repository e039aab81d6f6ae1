package apiclient

// RetryPolicy governs read requests only; mutations are never retried.
type RetryPolicy struct {
	// MaxAttempts is the number of tries against the resolved URL (min 1).
	MaxAttempts int
	// FallbackToOrigin retries a failed read once against the frontend origin
	// when it was sent to a remote apiBase.
	FallbackToOrigin bool
}

// DefaultRetryPolicy is one attempt plus the same-origin fallback.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1, FallbackToOrigin: true}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}
