package campaign

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"whatsapp-console/internal/models"
)

// ValidateStart checks the preconditions for moving a campaign into running.
// A failing campaign stays in draft and the error names the offending fields.
func ValidateStart(c *models.Campaign) error {
	checks := validation.Errors{
		"name":      validation.Validate(c.Name, validation.Required),
		"templates": validation.Validate(c.TemplateIDList(), validation.Required),
		"sessions":  validation.Validate(c.SessionIDList(), validation.Required),
		"targets":   validation.Validate(c.TargetList(), validation.Required),
	}
	if err := checks.Filter(); err != nil {
		return &ValidationError{Field: "campaign", Reason: err.Error()}
	}
	return ValidatePolicy(c.Policy)
}

// ValidatePolicy enforces the anti-block invariants: non-negative delays with
// delay_min <= delay_max.
func ValidatePolicy(p models.AntiBlockPolicy) error {
	if p.DelayMinSeconds < 0 || p.DelayMaxSeconds < 0 {
		return NewValidationError("policy", "delays must be non-negative")
	}
	if p.DelayMaxSeconds < p.DelayMinSeconds {
		return NewValidationError("policy", "delay_min_seconds must not exceed delay_max_seconds")
	}
	if p.DailyLimit < 0 {
		return NewValidationError("policy", "daily_limit must be non-negative")
	}
	if p.CooldownHours < 0 {
		return NewValidationError("policy", "cooldown_hours must be non-negative")
	}
	return nil
}
