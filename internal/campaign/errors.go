package campaign

import (
	"errors"
	"fmt"
)

// ErrNoSessionReady aborts a whole run: no assigned session can send.
var ErrNoSessionReady = errors.New("no assigned session is ready")

// Per-target errors. The dispatch loop records them and moves on.
var (
	ErrEmptyMessage       = errors.New("template resolved to empty message")
	ErrDailyLimitExceeded = errors.New("session daily limit exceeded")
	ErrCooldown           = errors.New("target is in cooldown for this session")
)

// ValidationError reports which campaign field failed pre-start validation.
// The campaign stays in draft when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("campaign validation failed on %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// GatewayError wraps a failure reported by the messaging gateway for one send.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway send failed: %s", e.Message)
}
