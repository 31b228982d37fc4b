package config

import (
	"fmt"
	"time"
)

type SessionConfig struct {
	TTL        time.Duration `koanf:"ttl"`
	CookieName string        `koanf:"cookieName"`
	Secure     bool          `koanf:"secure"`
}

func (c *SessionConfig) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("session TTL is not configured")
	}
	if c.CookieName == "" {
		return fmt.Errorf("session cookie name is not configured")
	}
	return nil
}
