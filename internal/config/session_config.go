package config

import "time"

type SessionConfig interface {
	GetSessionCookieName() string
	GetMaxSessionAge() time.Duration
	GetLogoutTimeout() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSessionCookieName() string {
	return GetEnv("SESSION_COOKIE", "gw_session")
}

// GetMaxSessionAge is used when the refresh token carries no readable expiry.
func (Session) GetMaxSessionAge() time.Duration {
	return GetEnvDuration("SESSION_MAX_AGE", 7*24*time.Hour)
}

func (Session) GetLogoutTimeout() time.Duration {
	return GetEnvDuration("LOGOUT_TIMEOUT", 3*time.Second)
}
