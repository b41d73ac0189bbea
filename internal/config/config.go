// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the connector's
// settings: policy-service and channel API endpoints and tokens, suggestion
// tuning, anchor-lookup retry budget, server timeouts, logging, rate
// limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// PolicyConfig holds the connection settings for the dialogue-policy service.
type PolicyConfig struct {
	Host  string // POLICY_HOST, e.g. "http://localhost:5005"
	Token string // POLICY_TOKEN, optional bearer token
}

// ChannelConfig holds the connection settings for the messaging channel API.
type ChannelConfig struct {
	Host        string // CHANNEL_HOST, e.g. "http://airy.core"
	SystemToken string // SYSTEM_TOKEN, optional; sent as Authorization on messages.send
}

// SuggestionConfig tunes the reply-suggestion orchestrator.
type SuggestionConfig struct {
	// Threshold is the minimum classifier confidence for a candidate intent.
	// Candidates at or below the threshold are never queried.
	Threshold float64 // SUGGESTION_THRESHOLD
	// MaxCandidates caps the number of policy queries per fallback.
	MaxCandidates int // MAX_SUGGESTIONS
	// FallbackIntent is the pseudo-intent excluded from candidates.
	FallbackIntent string // FALLBACK_INTENT

	// AnchorRetries is the number of extra messages.list attempts after the
	// first one fails; AnchorRetryDelay is the fixed wait between attempts.
	AnchorRetries    int           // ANCHOR_RETRIES
	AnchorRetryDelay time.Duration // ANCHOR_RETRY_DELAY
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Collaborators
	Policy  PolicyConfig
	Channel ChannelConfig

	// App
	Suggestion     SuggestionConfig
	DomainPath     string        // optional domain.yml with response templates
	DBPath         string        // SQLite path for the conversation event log
	EchoSetCap     int           // max texts retained in the sent-message echo set
	HandoffTimeout time.Duration // budget for async conversation handoff

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Collaborators
		Policy: PolicyConfig{
			Host:  getenv("POLICY_HOST", "http://localhost:5005"),
			Token: getenv("POLICY_TOKEN", ""),
		},
		Channel: ChannelConfig{
			Host:        getenv("CHANNEL_HOST", "http://airy.core"),
			SystemToken: getenv("SYSTEM_TOKEN", ""),
		},

		// App
		Suggestion: SuggestionConfig{
			Threshold:        getfloat("SUGGESTION_THRESHOLD", 0.3),
			MaxCandidates:    getint("MAX_SUGGESTIONS", 3),
			FallbackIntent:   getenv("FALLBACK_INTENT", "nlu_fallback"),
			AnchorRetries:    getint("ANCHOR_RETRIES", 3),
			AnchorRetryDelay: getdur("ANCHOR_RETRY_DELAY", 500*time.Millisecond),
		},
		DomainPath:     getenv("DOMAIN_PATH", ""),
		DBPath:         getenv("DB_PATH", "bridge.db"),
		EchoSetCap:     getint("ECHO_SET_CAP", 1024),
		HandoffTimeout: getdur("HANDOFF_TIMEOUT", 30*time.Second),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 25.0),
		RateBurst: getint("RATE_BURST", 50),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-suggest-bridge"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.Policy.Host = strings.TrimRight(cfg.Policy.Host, "/")
	cfg.Channel.Host = strings.TrimRight(cfg.Channel.Host, "/")

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.Policy.Host) == "" {
		return cfg, errors.New("POLICY_HOST must not be empty")
	}
	if strings.TrimSpace(cfg.Channel.Host) == "" {
		return cfg, errors.New("CHANNEL_HOST must not be empty")
	}
	if cfg.Suggestion.Threshold < 0 || cfg.Suggestion.Threshold > 1 {
		return cfg, errors.New("SUGGESTION_THRESHOLD must be between 0 and 1")
	}
	if cfg.Suggestion.MaxCandidates < 1 {
		return cfg, errors.New("MAX_SUGGESTIONS must be >= 1")
	}
	if strings.TrimSpace(cfg.Suggestion.FallbackIntent) == "" {
		return cfg, errors.New("FALLBACK_INTENT must not be empty")
	}
	if cfg.Suggestion.AnchorRetries < 0 {
		return cfg, errors.New("ANCHOR_RETRIES must be >= 0")
	}
	if cfg.Suggestion.AnchorRetryDelay < 0 {
		return cfg, errors.New("ANCHOR_RETRY_DELAY must be >= 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.EchoSetCap < 1 {
		return cfg, errors.New("ECHO_SET_CAP must be >= 1")
	}
	if cfg.HandoffTimeout <= 0 {
		return cfg, errors.New("HANDOFF_TIMEOUT must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
