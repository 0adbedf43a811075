package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	envVar        = "ENV"
	envDev        = "DEV"
	frontPortVar  = "FRONTEND_DEV_PORT"
	backPortVar   = "BACKEND_DEV_PORT"
	backSchemeVar = "BACKEND_SCHEME"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "3000")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Tenant Gateway")
}

func (EnvVars) GetEnv() string {
	return strings.ToUpper(GetEnv(envVar, envDev))
}

func (e EnvVars) IsDevelopment() bool {
	return e.GetEnv() == envDev
}

// GetFrontendDevPort is the port tenant URLs carry in development.
func (EnvVars) GetFrontendDevPort() string {
	return GetEnv(frontPortVar, "3000")
}

// GetBackendDevPort is the port of the REST backend in development.
func (EnvVars) GetBackendDevPort() string {
	return GetEnv(backPortVar, "8000")
}

// GetBackendScheme overrides the scheme used to reach the backend; empty follows the request.
func (EnvVars) GetBackendScheme() string {
	return GetEnv(backSchemeVar, "")
}

// GetSessionDriver selects the session repository: "memory" or "redis".
func (EnvVars) GetSessionDriver() string {
	return strings.ToLower(GetEnv("SESSION_DRIVER", "memory"))
}

func (EnvVars) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (EnvVars) GetRedisDB() int {
	db, err := strconv.Atoi(GetEnv("REDIS_DB", "0"))
	if err != nil {
		return 0
	}
	return db
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Str("var", envVar).Str("value", value).Msg("invalid duration, using default")
		return defaultValue
	}
	return d
}

// loadDotenv reads the first .env found in the working directory or its parents.
// Variables already present in the environment win.
func loadDotenv() {
	for _, p := range []string{".env", filepath.Join("..", ".env"), filepath.Join("..", "..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err != nil {
				log.Warn().Err(err).Str("file", p).Msg("failed to load env file")
				return
			}
			log.Debug().Str("file", p).Msg("loaded env file")
			return
		}
	}
}
