package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// envPrefix is the configured prefix spec.md §6 requires for
// environment overrides, with "__" as the nested-key separator (e.g.
// AIRS_HTTP__BIND_ADDR overrides FileConfig.HTTP.BindAddr).
const envPrefix = "AIRS_"

// applyEnvOverrides mutates fc in place with any AIRS_* environment
// variables that are set, layering over whatever LoadFile already
// populated from the TOML file, the way the teacher's
// getEnvWithDefault/parseDurationWithDefault helpers source from bare
// env but here sourced against a parsed TOML tree instead.
func applyEnvOverrides(fc *FileConfig) error {
	if v, ok := lookupEnv("SERVER__NAME"); ok {
		fc.Server.Name = v
	}
	if v, ok := lookupEnv("SERVER__VERSION"); ok {
		fc.Server.Version = v
	}
	if v, ok := lookupEnv("SERVER__TRANSPORT"); ok {
		fc.Server.Transport = v
	}

	if v, ok := lookupEnv("SECURITY__STRATEGIES_ENABLED"); ok {
		fc.Security.StrategiesEnabled = splitCommaSeparated(v)
	}
	if v, ok := lookupEnv("SECURITY__POLICY"); ok {
		fc.Security.Policy = v
	}
	if v, ok := lookupEnv("SECURITY__REQUIRED_SCOPES"); ok {
		fc.Security.RequiredScopes = splitCommaSeparated(v)
	}

	if v, ok := lookupEnv("HTTP__BIND_ADDR"); ok {
		fc.HTTP.BindAddr = v
	}
	if v, ok := lookupEnv("HTTP__CORS_ORIGINS"); ok {
		fc.HTTP.CORSOrigins = splitCommaSeparated(v)
	}
	if err := overrideInt("HTTP__SSE_REPLAY_SIZE", &fc.HTTP.SSEReplaySize); err != nil {
		return err
	}
	if err := overrideDuration("HTTP__REQUEST_TIMEOUT", &fc.HTTP.RequestTimeout); err != nil {
		return err
	}
	if err := overrideInt64("HTTP__MAX_PAYLOAD_BYTES", &fc.HTTP.MaxPayloadBytes); err != nil {
		return err
	}
	if err := overrideInt("HTTP__MAX_CONCURRENT", &fc.HTTP.MaxConcurrent); err != nil {
		return err
	}
	if err := overrideDuration("HTTP__SESSION_IDLE_TTL", &fc.HTTP.SessionIdleTTL); err != nil {
		return err
	}
	if err := overrideInt("HTTP__MAX_SESSIONS", &fc.HTTP.MaxSessions); err != nil {
		return err
	}

	if err := overrideInt("STDIO__BUFFER_SIZE", &fc.Stdio.BufferSize); err != nil {
		return err
	}
	if v, ok := lookupEnv("STDIO__STRICT_VALIDATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid %s%s: %w", envPrefix, "STDIO__STRICT_VALIDATE", err)
		}
		fc.Stdio.StrictValidate = b
	}

	if v, ok := lookupEnv("OAUTH2__ISSUER"); ok {
		fc.OAuth2.Issuer = v
	}
	if v, ok := lookupEnv("OAUTH2__AUDIENCE"); ok {
		fc.OAuth2.Audience = v
	}
	if v, ok := lookupEnv("OAUTH2__JWKS_URL"); ok {
		fc.OAuth2.JWKSURL = v
	}
	if err := overrideDuration("OAUTH2__CACHE_TTL", &fc.OAuth2.CacheTTL); err != nil {
		return err
	}
	if err := overrideDuration("OAUTH2__CLOCK_SKEW", &fc.OAuth2.ClockSkew); err != nil {
		return err
	}

	return nil
}

func lookupEnv(key string) (string, bool) {
	return os.LookupEnv(envPrefix + key)
}

func splitCommaSeparated(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func overrideInt(key string, dst *int) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: invalid %s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}

func overrideInt64(key string, dst *int64) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("config: invalid %s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}

func overrideDuration(key string, dst *time.Duration) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: invalid %s%s: %w", envPrefix, key, err)
	}
	*dst = d
	return nil
}
