package config

import "time"

type SessionConfig interface {
	GetSessionSecret() []byte
	GetMaxSessionAge() time.Duration
	GetOTPResendWindow() time.Duration
	GetExpiryNoticeDelay() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetSessionSecret returns the HMAC key used to sign console session cookies.
func (Session) GetSessionSecret() []byte {
	return []byte(GetEnv("SESSION_SECRET", "dev-only-console-secret"))
}

func (Session) GetMaxSessionAge() time.Duration {
	return 30 * time.Minute
}

// GetOTPResendWindow is the countdown gating the "resend code" action.
func (Session) GetOTPResendWindow() time.Duration {
	return 60 * time.Second
}

// GetExpiryNoticeDelay is how long the session-expiry notice stays visible
// before the forced logout fires on its own.
func (Session) GetExpiryNoticeDelay() time.Duration {
	return 5 * time.Second
}
