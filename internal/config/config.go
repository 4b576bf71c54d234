// Package config composes the runtime's configuration from defaults,
// an optional TOML file (spec.md §6: [server], [security], [http],
// [stdio], [oauth2]), and AIRS_-prefixed environment overrides, the
// way the teacher's internal/config/config.go layers environment
// variables over built-in defaults with explicit helper functions
// per field, generalized here to layer over a parsed TOML tree
// instead of bare env.
package config

import (
	"fmt"
	"time"
)

// Config holds the complete, validated runtime configuration in a flat
// structure for convenient consumption by cmd/server.
type Config struct {
	// Server identity and active transport ("stdio" or "http").
	ServerName    string
	ServerVersion string
	Transport     string

	// Security: which authentication strategies to enable and which
	// authorization policy to apply.
	StrategiesEnabled []string
	Policy            string
	RequiredScopes    []string

	// HTTP engine.
	Addr            string
	BaseURL         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	CORSOrigins     []string
	SSEReplaySize   int
	MaxPayloadBytes int64
	MaxConcurrent   int
	SessionIdleTTL  time.Duration
	MaxSessions     int

	// Stdio transport. StdioBufferSize is in KiB.
	StdioBufferSize     int
	StdioStrictValidate bool

	// OAuth2.
	AuthorizationServers []string
	Audience             string
	JWKSURL              string
	JWKSCacheTTL         time.Duration
	ClockSkew            time.Duration

	// MCP session.
	SessionTTL time.Duration
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		Server: ServerFileConfig{
			Name:      "mcp-runtime",
			Version:   "0.1.0",
			Transport: "http",
		},
		Security: SecurityFileConfig{
			StrategiesEnabled: []string{"oauth2"},
			Policy:            "scope",
		},
		HTTP: HTTPFileConfig{
			BindAddr:        ":8080",
			RequestTimeout:  30 * time.Second,
			SSEReplaySize:   1000,
			MaxPayloadBytes: 1 << 20,
			MaxConcurrent:   64,
			SessionIdleTTL:  time.Hour,
			MaxSessions:     10000,
		},
		Stdio: StdioFileConfig{
			BufferSize:     64,
			StrictValidate: true,
		},
		OAuth2: OAuth2FileConfig{
			CacheTTL:  time.Hour,
			ClockSkew: time.Minute,
		},
	}
}

// Load builds the runtime Config from defaults, the TOML file at path
// (if non-empty and present), and AIRS_-prefixed environment
// overrides, then validates the result.
func Load(path string) (*Config, error) {
	fc := defaultFileConfig()

	fromFile, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	mergeFileConfig(&fc, fromFile)

	if err := applyEnvOverrides(&fc); err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerName:    fc.Server.Name,
		ServerVersion: fc.Server.Version,
		Transport:     fc.Server.Transport,

		StrategiesEnabled: fc.Security.StrategiesEnabled,
		Policy:            fc.Security.Policy,
		RequiredScopes:    fc.Security.RequiredScopes,

		Addr:            fc.HTTP.BindAddr,
		ReadTimeout:     fc.HTTP.RequestTimeout,
		WriteTimeout:    fc.HTTP.RequestTimeout,
		IdleTimeout:     fc.HTTP.SessionIdleTTL,
		CORSOrigins:     fc.HTTP.CORSOrigins,
		SSEReplaySize:   fc.HTTP.SSEReplaySize,
		MaxPayloadBytes: fc.HTTP.MaxPayloadBytes,
		MaxConcurrent:   fc.HTTP.MaxConcurrent,
		SessionIdleTTL:  fc.HTTP.SessionIdleTTL,
		MaxSessions:     fc.HTTP.MaxSessions,

		StdioBufferSize:     fc.Stdio.BufferSize,
		StdioStrictValidate: fc.Stdio.StrictValidate,

		BaseURL: fc.OAuth2.Audience,

		AuthorizationServers: []string{fc.OAuth2.Issuer},
		Audience:             fc.OAuth2.Audience,
		JWKSURL:              fc.OAuth2.JWKSURL,
		JWKSCacheTTL:         fc.OAuth2.CacheTTL,
		ClockSkew:            fc.OAuth2.ClockSkew,

		SessionTTL: fc.HTTP.SessionIdleTTL,
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFileConfig overlays any non-zero fields from overlay onto base.
func mergeFileConfig(base, overlay *FileConfig) {
	if overlay.Server.Name != "" {
		base.Server.Name = overlay.Server.Name
	}
	if overlay.Server.Version != "" {
		base.Server.Version = overlay.Server.Version
	}
	if overlay.Server.Transport != "" {
		base.Server.Transport = overlay.Server.Transport
	}
	if len(overlay.Security.StrategiesEnabled) > 0 {
		base.Security.StrategiesEnabled = overlay.Security.StrategiesEnabled
	}
	if overlay.Security.Policy != "" {
		base.Security.Policy = overlay.Security.Policy
	}
	if len(overlay.Security.RequiredScopes) > 0 {
		base.Security.RequiredScopes = overlay.Security.RequiredScopes
	}
	if overlay.HTTP.BindAddr != "" {
		base.HTTP.BindAddr = overlay.HTTP.BindAddr
	}
	if len(overlay.HTTP.CORSOrigins) > 0 {
		base.HTTP.CORSOrigins = overlay.HTTP.CORSOrigins
	}
	if overlay.HTTP.SSEReplaySize != 0 {
		base.HTTP.SSEReplaySize = overlay.HTTP.SSEReplaySize
	}
	if overlay.HTTP.RequestTimeout != 0 {
		base.HTTP.RequestTimeout = overlay.HTTP.RequestTimeout
	}
	if overlay.HTTP.MaxPayloadBytes != 0 {
		base.HTTP.MaxPayloadBytes = overlay.HTTP.MaxPayloadBytes
	}
	if overlay.HTTP.MaxConcurrent != 0 {
		base.HTTP.MaxConcurrent = overlay.HTTP.MaxConcurrent
	}
	if overlay.HTTP.SessionIdleTTL != 0 {
		base.HTTP.SessionIdleTTL = overlay.HTTP.SessionIdleTTL
	}
	if overlay.HTTP.MaxSessions != 0 {
		base.HTTP.MaxSessions = overlay.HTTP.MaxSessions
	}
	if overlay.Stdio.BufferSize != 0 {
		base.Stdio.BufferSize = overlay.Stdio.BufferSize
	}
	if overlay.Stdio.StrictValidate {
		base.Stdio.StrictValidate = overlay.Stdio.StrictValidate
	}
	if overlay.OAuth2.Issuer != "" {
		base.OAuth2.Issuer = overlay.OAuth2.Issuer
	}
	if overlay.OAuth2.Audience != "" {
		base.OAuth2.Audience = overlay.OAuth2.Audience
	}
	if overlay.OAuth2.JWKSURL != "" {
		base.OAuth2.JWKSURL = overlay.OAuth2.JWKSURL
	}
	if overlay.OAuth2.CacheTTL != 0 {
		base.OAuth2.CacheTTL = overlay.OAuth2.CacheTTL
	}
	if overlay.OAuth2.ClockSkew != 0 {
		base.OAuth2.ClockSkew = overlay.OAuth2.ClockSkew
	}
}

// String returns a debug representation of the configuration. There
// are no secrets to redact: credentials travel in request headers,
// never through Config.
func (c *Config) String() string {
	return fmt.Sprintf("Config{ServerName: %s, Transport: %s, Addr: %s, Policy: %s, StrategiesEnabled: %v}",
		c.ServerName, c.Transport, c.Addr, c.Policy, c.StrategiesEnabled)
}
