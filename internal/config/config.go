package config

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	TokenConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	IsDevelopment() bool
	GetFrontendDevPort() string
	GetBackendDevPort() string
	GetBackendScheme() string
	GetSessionDriver() string
	GetRedisAddr() string
	GetRedisDB() int
}

type CorsConfig interface {
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Tokens
}

// New loads an optional .env file and returns the environment backed configuration.
func New() Config {
	loadDotenv()
	return mainConfig{}
}
