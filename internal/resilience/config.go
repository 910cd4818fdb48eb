package resilience

import (
	"time"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/config"
)

// FromConfig converts the generation retry settings into a RetryConfig with
// a rate-limit cooldown hook installed.
func FromConfig(c config.RetryConfig) RetryConfig {
	cfg := DefaultRetryConfig()
	if c.MaxAttempts > 0 {
		cfg.MaxAttempts = c.MaxAttempts
	}
	if c.InitialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(c.InitialBackoffMs) * time.Millisecond
	}
	if c.MaxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(c.MaxBackoffMs) * time.Millisecond
	}
	if c.Multiplier > 0 {
		cfg.Multiplier = c.Multiplier
	}
	if c.JitterFraction >= 0 {
		cfg.JitterFraction = c.JitterFraction
	}
	if c.CooldownSecs > 0 {
		cfg.DelayFor = Cooldown(time.Duration(c.CooldownSecs)*time.Second, 2*time.Second)
	}
	return cfg
}
