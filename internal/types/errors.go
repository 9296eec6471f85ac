package types

import (
	"errors"
	"fmt"
	"time"
)

// BudgetExceededError means a scope's spend limit would be crossed.
// The request was rejected before any provider call.
type BudgetExceededError struct {
	Scope        string  // "global", "tenant:<id>" or "user:<id>"
	CurrentUsage float64 // dollars already spent this period
	Limit        float64 // the limit that would be crossed
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded for %s: $%.4f of $%.2f used", e.Scope, e.CurrentUsage, e.Limit)
}

// AuthenticationError means a provider rejected our credential.
// Never retried: it is a configuration bug, not a transient fault.
type AuthenticationError struct {
	Provider string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for provider %s", e.Provider)
}

// RateLimitError means a provider returned 429.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration // zero if the provider sent no hint
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by %s (retry after %s)", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited by %s", e.Provider)
}

// ServiceUnavailableError means a provider failed transiently (5xx, timeout,
// connection error) or every fallback was exhausted.
type ServiceUnavailableError struct {
	Provider string
	Reason   string
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %s", e.Provider, e.Reason)
}

// ValidationError means the request itself is malformed.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Message
}

// ConfigurationError means the gateway was wired with bad settings.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// IsRetryable reports whether the orchestrator may retry the request against
// another provider.
func IsRetryable(err error) bool {
	var rl *RateLimitError
	var su *ServiceUnavailableError
	return errors.As(err, &rl) || errors.As(err, &su)
}

// IsFatal reports whether the error must surface to the caller immediately.
func IsFatal(err error) bool {
	var auth *AuthenticationError
	var val *ValidationError
	var cfg *ConfigurationError
	var bud *BudgetExceededError
	return errors.As(err, &auth) || errors.As(err, &val) ||
		errors.As(err, &cfg) || errors.As(err, &bud)
}
