package generation

import "errors"

// Sentinel classification targets for errors.Is checks.
var (
	// ErrServiceDisabled is matched by DisabledError.
	ErrServiceDisabled = errors.New("generation: service disabled")
	// ErrConfiguration marks missing or invalid credentials or settings.
	ErrConfiguration = errors.New("generation: configuration error")
	// ErrRateLimitExceeded marks throttling that survived the retry budget,
	// or an exhausted actor quota.
	ErrRateLimitExceeded = errors.New("generation: rate limit exceeded")
	// ErrUpstream marks a generic upstream failure after retries.
	ErrUpstream = errors.New("generation: upstream error")
)

// DisabledError carries the operator-facing maintenance message.
type DisabledError struct {
	Message string
}

func (e *DisabledError) Error() string {
	if e == nil || e.Message == "" {
		return ErrServiceDisabled.Error()
	}
	return "generation: service disabled: " + e.Message
}

// Is lets errors.Is(err, ErrServiceDisabled) match.
func (e *DisabledError) Is(target error) bool {
	return target == ErrServiceDisabled
}
