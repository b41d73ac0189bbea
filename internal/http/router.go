// Package httpapi wires the HTTP transport (Gin) to the connector's
// services, middleware, and route handlers. It centralizes the cross-cutting
// concerns (tracing, correlation IDs, logging/redaction, panic recovery,
// metrics, CORS, security headers, rate limiting) and the dependency
// injection between clients, bridge, and orchestrator.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RequestLogger: structured logs with scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and security headers
//
// The rate limiter is applied to the action surface only: the channel
// webhook is ack-first and must never be answered with 429.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/channelkit/go-suggest-bridge/internal/client/channel"
	"github.com/channelkit/go-suggest-bridge/internal/client/policy"
	"github.com/channelkit/go-suggest-bridge/internal/config"
	"github.com/channelkit/go-suggest-bridge/internal/domain"
	"github.com/channelkit/go-suggest-bridge/internal/http/handlers"
	"github.com/channelkit/go-suggest-bridge/internal/http/middleware"
	"github.com/channelkit/go-suggest-bridge/internal/repo"
	"github.com/channelkit/go-suggest-bridge/internal/retry"
	"github.com/channelkit/go-suggest-bridge/internal/services"
)

// trackerStoreShim adapts the repository free functions to the
// services.TrackerStore interface expected by the bridge. This keeps
// services decoupled from the concrete repo package while reusing the
// existing functions.
type trackerStoreShim struct {
	db *gorm.DB
}

// AppendEvents proxies repo.AppendEvents.
func (s trackerStoreShim) AppendEvents(ctx context.Context, conversationID string, events ...domain.Event) error {
	return repo.AppendEvents(ctx, s.db, conversationID, events...)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and wires the client/service graph: the channel client's sent
// recorder feeds the bridge's echo set, the bridge sends replies through the
// channel client, and the orchestrator shares both clients.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, responses domain.Responses, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with scrubbing; the channel token must never
	// reach the logs.
	r.Use(middleware.RequestLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-System-Token"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
		NoStore:    false,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Dependency injection: clients ← config, services ← clients/repo.
	// The bridge variable is declared first so the channel client's sent
	// recorder can close over it.
	var bridge *services.BridgeService

	policyClient := policy.New(cfg.Policy)
	channelClient := channel.New(cfg.Channel,
		retry.Config{Extra: cfg.Suggestion.AnchorRetries, Delay: cfg.Suggestion.AnchorRetryDelay},
		func(text string) { bridge.RecordSent(text) },
	)

	bridge = services.NewBridgeService(
		trackerStoreShim{db: db},
		policyClient,
		channelClient,
		cfg.EchoSetCap,
		cfg.HandoffTimeout,
	)

	suggestSvc := services.NewSuggestionService(policyClient, channelClient)
	suggestSvc.Threshold = cfg.Suggestion.Threshold
	suggestSvc.MaxCandidates = cfg.Suggestion.MaxCandidates
	suggestSvc.FallbackIntent = cfg.Suggestion.FallbackIntent
	suggestSvc.FallbackResponses = responses

	h := handlers.New(bridge, suggestSvc)

	// Channel-facing surface (ack-first; never rate limited)
	r.GET("/", h.Health)
	r.GET("/health", h.Health)
	r.POST("/webhook", h.Webhook)

	// Engine-facing action surface
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	actions := r.Group("/actions", rl.Handler())
	{
		actions.POST("/suggest-replies", h.SuggestReplies)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// routes, defending against oversized payloads.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request != nil && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
