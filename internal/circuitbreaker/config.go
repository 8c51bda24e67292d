package circuitbreaker

import "time"

// DefaultConfig opens after 3 consecutive failures and probes after 30 seconds.
func DefaultConfig() Config {
	return Config{
		ConsecutiveFailures: 3,
		Cooldown:            30 * time.Second,
		MaxRequests:         1,
	}
}

func (c Config) withDefaults() Config {
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = 1
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultConfig().Cooldown
	}
	return c
}
