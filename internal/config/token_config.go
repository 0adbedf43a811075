package config

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

type TokenConfig interface {
	GetPublicEndpoints() []string
	GetUpstreamTimeout() time.Duration
	GetMaxRequestBody() int64
}

type Tokens struct{}

var _ TokenConfig = Tokens{}

const defaultMaxRequestBody = 32 << 20

var defaultPublicEndpoints = []string{"/auth/login/", "/auth/token/refresh/", "/tenants/create/"}

// GetPublicEndpoints lists the path fragments that must never carry a bearer token.
func (Tokens) GetPublicEndpoints() []string {
	v := GetEnv("PUBLIC_ENDPOINTS", "")
	if v == "" {
		return append([]string(nil), defaultPublicEndpoints...)
	}
	var endpoints []string
	for _, e := range strings.Split(v, ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}
	return endpoints
}

func (Tokens) GetUpstreamTimeout() time.Duration {
	return GetEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second)
}

// GetMaxRequestBody caps the body of a proxied API request, e.g. "32MiB" or "500kB".
func (Tokens) GetMaxRequestBody() int64 {
	v := GetEnv("MAX_REQUEST_BODY", "")
	if v == "" {
		return defaultMaxRequestBody
	}
	n, err := humanize.ParseBytes(v)
	if err != nil || n == 0 {
		log.Warn().Str("var", "MAX_REQUEST_BODY").Str("value", v).Msg("invalid size, using default")
		return defaultMaxRequestBody
	}
	return int64(n)
}
