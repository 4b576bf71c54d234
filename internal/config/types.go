package config

import "time"

// FileConfig mirrors spec.md §6's TOML section layout: [server],
// [security], [http], [stdio], [oauth2]. Single-word fields match
// their TOML key by case-insensitive field name; multi-word fields
// carry explicit snake_case `toml:"..."` tags (bind_addr,
// strategies_enabled, ...).
type FileConfig struct {
	Server   ServerFileConfig
	Security SecurityFileConfig
	HTTP     HTTPFileConfig
	Stdio    StdioFileConfig
	OAuth2   OAuth2FileConfig
}

// ServerFileConfig is the [server] section: identity and the active
// transport.
type ServerFileConfig struct {
	Name      string
	Version   string
	Transport string // "stdio" or "http"
}

// SecurityFileConfig is the [security] section: which authentication
// strategies are enabled, the authorization policy to apply, and the
// scope requirements it enforces.
type SecurityFileConfig struct {
	StrategiesEnabled []string `toml:"strategies_enabled"` // subset of "oauth2", "apikey", "basic", "none"
	Policy            string   // "none", "scope", "binary"
	RequiredScopes    []string `toml:"required_scopes"`
}

// HTTPFileConfig is the [http] section.
type HTTPFileConfig struct {
	BindAddr        string        `toml:"bind_addr"`
	CORSOrigins     []string      `toml:"cors_origins"`
	SSEReplaySize   int           `toml:"sse_replay_size"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
	MaxPayloadBytes int64         `toml:"max_payload_bytes"`
	MaxConcurrent   int           `toml:"max_concurrent"`
	SessionIdleTTL  time.Duration `toml:"session_idle_ttl"`
	MaxSessions     int           `toml:"max_sessions"`
}

// StdioFileConfig is the [stdio] section. BufferSize is in KiB and
// bounds a single newline-delimited JSON-RPC line (spec.md §4.6).
type StdioFileConfig struct {
	BufferSize     int  `toml:"buffer_size"`
	StrictValidate bool `toml:"strict_validate"`
}

// OAuth2FileConfig is the [oauth2] section.
type OAuth2FileConfig struct {
	Issuer    string
	Audience  string
	JWKSURL   string        `toml:"jwks_url"`
	CacheTTL  time.Duration `toml:"cache_ttl"`
	ClockSkew time.Duration `toml:"clock_skew"`
}
