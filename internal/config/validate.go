package config

import (
	"fmt"
	"net/url"
)

// Validate checks that the configuration is valid and complete.
// It returns an error if required fields are missing or values are invalid.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateServer(cfg); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	if err := validateSecurity(cfg); err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}
	if cfg.Transport == "http" {
		if err := validateHTTP(cfg); err != nil {
			return fmt.Errorf("invalid http config: %w", err)
		}
	}
	if contains(cfg.StrategiesEnabled, "oauth2") {
		if err := validateOAuth(cfg); err != nil {
			return fmt.Errorf("invalid oauth2 config: %w", err)
		}
	}
	if err := validateMCP(cfg); err != nil {
		return fmt.Errorf("invalid mcp config: %w", err)
	}

	return nil
}

func contains(set []string, want string) bool {
	for _, s := range set {
		if s == want {
			return true
		}
	}
	return false
}

// isLocalhost returns true if the host is localhost or a loopback address.
// It handles bare hostnames and host:port combinations.
func isLocalhost(host string) bool {
	if host == "localhost" || host == "127.0.0.1" {
		return true
	}
	if len(host) > len("localhost:") && host[:len("localhost:")] == "localhost:" {
		return true
	}
	if len(host) > len("127.0.0.1:") && host[:len("127.0.0.1:")] == "127.0.0.1:" {
		return true
	}
	return false
}

func validateAbsoluteURL(field, value string, allowLocalHTTP bool) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if !parsed.IsAbs() {
		return fmt.Errorf("%s must be an absolute URL", field)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("%s must use http or https scheme", field)
	}
	if allowLocalHTTP && parsed.Scheme == "http" && !isLocalhost(parsed.Host) {
		return fmt.Errorf("%s must use https scheme for non-localhost hosts", field)
	}
	return nil
}

// validateServer validates the [server] section and transport choice.
func validateServer(cfg *Config) error {
	if cfg.ServerName == "" {
		return fmt.Errorf("server name is required")
	}
	if cfg.Transport != "stdio" && cfg.Transport != "http" {
		return fmt.Errorf("transport must be %q or %q, got %q", "stdio", "http", cfg.Transport)
	}
	return nil
}

// validateSecurity validates the [security] section.
func validateSecurity(cfg *Config) error {
	if len(cfg.StrategiesEnabled) == 0 {
		return fmt.Errorf("at least one authentication strategy must be enabled")
	}
	for _, strategy := range cfg.StrategiesEnabled {
		switch strategy {
		case "oauth2", "apikey", "basic", "none":
		default:
			return fmt.Errorf("unknown authentication strategy %q", strategy)
		}
	}
	switch cfg.Policy {
	case "none", "scope", "binary":
	default:
		return fmt.Errorf("unknown authorization policy %q", cfg.Policy)
	}
	return nil
}

// validateHTTP validates the [http] section, required when the
// server's active transport is HTTP.
func validateHTTP(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("bind address is required")
	}
	if cfg.ReadTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if cfg.MaxPayloadBytes <= 0 {
		return fmt.Errorf("max payload bytes must be positive")
	}
	if cfg.MaxConcurrent <= 0 {
		return fmt.Errorf("max concurrent requests must be positive")
	}
	if cfg.SSEReplaySize <= 0 {
		return fmt.Errorf("SSE replay size must be positive")
	}
	if cfg.MaxSessions < 0 {
		return fmt.Errorf("max sessions must be non-negative")
	}
	return nil
}

// validateOAuth validates the [oauth2] section, required when the
// oauth2 authentication strategy is enabled.
func validateOAuth(cfg *Config) error {
	if len(cfg.AuthorizationServers) == 0 || cfg.AuthorizationServers[0] == "" {
		return fmt.Errorf("issuer is required")
	}
	if err := validateAbsoluteURL("issuer", cfg.AuthorizationServers[0], true); err != nil {
		return err
	}

	if cfg.Audience == "" {
		return fmt.Errorf("audience is required")
	}
	if err := validateAbsoluteURL("audience", cfg.Audience, true); err != nil {
		return err
	}

	if cfg.JWKSCacheTTL <= 0 {
		return fmt.Errorf("jwks cache ttl must be positive")
	}
	if cfg.ClockSkew <= 0 {
		return fmt.Errorf("clock skew must be positive")
	}
	return nil
}

// validateMCP validates session-related fields.
func validateMCP(cfg *Config) error {
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	return nil
}
