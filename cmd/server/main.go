// Package main wires the MCP runtime's components together and runs
// its lifecycle, the way the teacher's cmd/server/main.go composes
// config, oauth, mcp, and transport services before entering its
// signal-driven shutdown loop, generalized here to the full
// strategy/policy/provider/transport selection SPEC_FULL.md
// describes.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/airsstack/mcp-runtime/internal/authn"
	"github.com/airsstack/mcp-runtime/internal/authn/apikey"
	"github.com/airsstack/mcp-runtime/internal/authn/basicauth"
	"github.com/airsstack/mcp-runtime/internal/authn/jwks"
	"github.com/airsstack/mcp-runtime/internal/authn/oauth2"
	"github.com/airsstack/mcp-runtime/internal/authz"
	"github.com/airsstack/mcp-runtime/internal/config"
	"github.com/airsstack/mcp-runtime/internal/httpengine"
	"github.com/airsstack/mcp-runtime/internal/httptransport"
	"github.com/airsstack/mcp-runtime/internal/mcpserver"
	"github.com/airsstack/mcp-runtime/internal/notify"
	"github.com/airsstack/mcp-runtime/internal/obslog"
	"github.com/airsstack/mcp-runtime/internal/obsmetrics"
	"github.com/airsstack/mcp-runtime/internal/providers"
	"github.com/airsstack/mcp-runtime/internal/serverbuilder"
	"github.com/airsstack/mcp-runtime/internal/session"
	"github.com/airsstack/mcp-runtime/internal/stdio"
)

func main() {
	configPath := flag.String("config", os.Getenv("MCP_RUNTIME_CONFIG"), "path to a TOML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := obslog.New(obslog.Options{
		Level:    slog.LevelInfo,
		FilePath: os.Getenv("MCP_RUNTIME_LOG_FILE"),
		Stdio:    cfg.Transport == "stdio",
	})

	logger.Info("server configuration loaded",
		"transport", cfg.Transport,
		"strategies", cfg.StrategiesEnabled,
		"policy", cfg.Policy,
	)

	auth := buildAuthManager(cfg, logger)
	policy := buildPolicy(cfg)

	tools := providers.NewToolRegistry()
	hub := notify.NewHub()
	resources := providers.NewResourceRegistry(hub)
	prompts := providers.NewPromptRegistry()
	logging, err := providers.NewLogLevelRegistry("info")
	if err != nil {
		log.Fatalf("failed to construct logging registry: %v", err)
	}

	sessions := session.NewManager(cfg.MaxSessions, cfg.SessionIdleTTL)
	metrics := obsmetrics.New()

	serverInfo := mcpserver.ServerInfo{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopSweep := startSessionSweep(ctx, sessions, metrics, cfg.SessionIdleTTL)
	defer stopSweep()

	requireAuth := cfg.Transport == "http" && !contains(cfg.StrategiesEnabled, "none")
	if err := serverbuilder.Validate(serverbuilder.Spec{
		Caps:              serverbuilder.Capabilities{Tools: true, Resources: true, Prompts: true, Logging: true},
		MethodScopes:      scopeBasedMethods(policy),
		RequireAuth:       requireAuth,
		AuthStrategyCount: auth.StrategyCount(),
	}); err != nil {
		log.Fatalf("server build validation failed: %v", err)
	}

	var runErr error
	switch cfg.Transport {
	case "stdio":
		handler := mcpserver.New[struct{}, providers.ToolProvider, providers.ResourceProvider, providers.PromptProvider, providers.LoggingProvider, authz.Policy[*authn.AuthContext]](
			serverInfo, tools, resources, prompts, logging, policy,
			sessions, hub, metrics, logger, "stdio",
		)
		t := stdio.NewWithLineLimit(os.Stdin, os.Stdout, logger, cfg.StdioBufferSize*1024)
		logger.Info("starting stdio transport")
		runErr = t.Start(ctx, handler)

	case "http":
		handler := mcpserver.New[httptransport.HTTPContext, providers.ToolProvider, providers.ResourceProvider, providers.PromptProvider, providers.LoggingProvider, authz.Policy[*authn.AuthContext]](
			serverInfo, tools, resources, prompts, logging, policy,
			sessions, hub, metrics, logger, "http",
		)

		engine := httpengine.NewMuxEngine(httpengine.Config{
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		})
		engine.Use(httpengine.CORSMiddleware(cfg.CORSOrigins))

		if contains(cfg.StrategiesEnabled, "oauth2") && len(cfg.AuthorizationServers) > 0 {
			resourceMeta := httpengine.NewResourceMetadataService(cfg.BaseURL, cfg.AuthorizationServers, cfg.RequiredScopes)
			httpengine.RegisterOAuthDiscovery(engine, cfg.AuthorizationServers[0], resourceMeta, cfg.JWKSCacheTTL, logger)
		}

		t := httptransport.New(httptransport.Config{
			Addr:            cfg.Addr,
			BaseURL:         cfg.BaseURL,
			MaxPayloadBytes: cfg.MaxPayloadBytes,
			MaxConcurrent:   cfg.MaxConcurrent,
			SSEReplaySize:   cfg.SSEReplaySize,
			RequireAuth:     !contains(cfg.StrategiesEnabled, "none"),
			Engine:          engine,
			Auth:            auth,
			Hub:             hub,
			Metrics:         metrics,
			Logger:          logger,
		})

		logger.Info("starting http transport", "addr", cfg.Addr)
		runErr = t.Start(ctx, handler)

	default:
		log.Fatalf("unknown transport %q (expected \"stdio\" or \"http\")", cfg.Transport)
	}

	if runErr != nil && runErr != context.Canceled {
		logger.Error("transport exited with error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("server stopped successfully")
}

// buildAuthManager composes an authn.Manager from the strategies named
// in cfg.StrategiesEnabled, in the given order, per spec.md's "try
// strategies in declared order" composition rule. "none" contributes
// no strategy (HandleMessage then sees a nil AuthContext for every
// request).
func buildAuthManager(cfg *config.Config, logger *slog.Logger) *authn.Manager {
	var strategies []authn.Strategy

	for _, name := range cfg.StrategiesEnabled {
		switch name {
		case "oauth2":
			client := jwks.NewClient(cfg.AuthorizationServers, cfg.JWKSCacheTTL)
			strategies = append(strategies, oauth2.New(client, cfg.Audience, cfg.ClockSkew))
		case "apikey":
			strategies = append(strategies, apikey.New(loadAPIKeyPrincipals()))
		case "basic":
			strategies = append(strategies, basicauth.New(loadBasicAuthPrincipals()))
		case "none":
			// contributes no strategy
		default:
			logger.Warn("ignoring unknown authentication strategy", "strategy", name)
		}
	}

	return authn.NewManager(strategies...)
}

// buildPolicy selects an authz.Policy by cfg.Policy ("none", "scope",
// or "binary"). The AZ type parameter on mcpserver.Handler is
// instantiated here as the authz.Policy interface itself rather than
// a concrete struct, trading the compile-time zero-cost property
// (available to a deployment that hardcodes one policy) for a single
// runtime-selectable code path driven by configuration, the way the
// teacher's own config-driven NewOAuthServices/NewMCPServices pick
// concrete behavior from a runtime Config rather than a build-time
// branch.
func buildPolicy(cfg *config.Config) authz.Policy[*authn.AuthContext] {
	switch cfg.Policy {
	case "binary":
		return authz.Binary[*authn.AuthContext]{
			Allow: func(auth *authn.AuthContext) bool { return auth != nil },
		}
	case "scope":
		return authz.ScopeBased[*authn.AuthContext]{
			Required: authz.DefaultMCPScopes(),
			Default:  cfg.RequiredScopes,
		}
	default:
		return authz.NoAuthorization[*authn.AuthContext]{}
	}
}

// scopeBasedMethods extracts the method-to-scopes map from policy when
// it is an authz.ScopeBased policy, for serverbuilder.Validate to cross
// check against registered providers. Other policy kinds (none, binary)
// do not key their decision off individual methods, so there is nothing
// to extract.
func scopeBasedMethods(policy authz.Policy[*authn.AuthContext]) map[string][]string {
	if sb, ok := policy.(authz.ScopeBased[*authn.AuthContext]); ok {
		return sb.Required
	}
	return nil
}

// loadAPIKeyPrincipals parses MCP_RUNTIME_API_KEYS, a ";"-separated
// list of "key:subject:scope1,scope2" entries, into an
// apikey.Strategy's principal table. Absent the env var, the
// strategy is constructed with an empty table (every key rejected).
func loadAPIKeyPrincipals() map[string]apikey.Principal {
	out := make(map[string]apikey.Principal)
	raw := os.Getenv("MCP_RUNTIME_API_KEYS")
	if raw == "" {
		return out
	}
	for _, entry := range strings.Split(raw, ";") {
		key, subject, scopes, ok := splitPrincipalEntry(entry)
		if !ok {
			continue
		}
		out[key] = apikey.Principal{Subject: subject, Scopes: scopes}
	}
	return out
}

// loadBasicAuthPrincipals parses MCP_RUNTIME_BASIC_USERS, a
// ";"-separated list of "username:password:subject:scope1,scope2"
// entries, into a basicauth.Strategy's user table.
func loadBasicAuthPrincipals() map[string]basicauth.Principal {
	out := make(map[string]basicauth.Principal)
	raw := os.Getenv("MCP_RUNTIME_BASIC_USERS")
	if raw == "" {
		return out
	}
	for _, entry := range strings.Split(raw, ";") {
		fields := strings.Split(entry, ":")
		if len(fields) < 2 {
			continue
		}
		username, password := fields[0], fields[1]
		subject := username
		var scopes []string
		if len(fields) > 2 && fields[2] != "" {
			subject = fields[2]
		}
		if len(fields) > 3 && fields[3] != "" {
			scopes = strings.Split(fields[3], ",")
		}
		out[username] = basicauth.Principal{Password: password, Subject: subject, Scopes: scopes}
	}
	return out
}

func splitPrincipalEntry(entry string) (key, subject string, scopes []string, ok bool) {
	fields := strings.Split(entry, ":")
	if len(fields) < 1 || fields[0] == "" {
		return "", "", nil, false
	}
	key = fields[0]
	subject = key
	if len(fields) > 1 && fields[1] != "" {
		subject = fields[1]
	}
	if len(fields) > 2 && fields[2] != "" {
		scopes = strings.Split(fields[2], ",")
	}
	return key, subject, scopes, true
}

func contains(set []string, want string) bool {
	for _, s := range set {
		if s == want {
			return true
		}
	}
	return false
}

// startSessionSweep periodically evicts idle sessions and publishes
// the live session-table size to Prometheus, returning a func that
// stops the background goroutine. A zero idleTimeout disables
// sweeping (Manager.Sweep is then a no-op) but the gauge is still
// kept current.
func startSessionSweep(ctx context.Context, sessions *session.Manager, metrics *obsmetrics.Metrics, idleTimeout time.Duration) func() {
	interval := idleTimeout / 4
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				sessions.Sweep(now)
				metrics.SetSessionTableSize(sessions.Len())
			}
		}
	}()

	return func() {
		ticker.Stop()
		<-done
	}
}
