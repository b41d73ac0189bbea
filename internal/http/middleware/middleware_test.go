package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func perform(r *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, http.MethodGet, "/", nil)
	rid := w.Header().Get("X-Request-ID")
	if rid == "" {
		t.Fatal("no X-Request-ID on the response")
	}
	if _, err := uuid.Parse(rid); err != nil {
		t.Fatalf("generated request id %q is not a UUID: %v", rid, err)
	}
}

func TestRequestID_PropagatesIncoming(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var inContext string
	r.GET("/", func(c *gin.Context) {
		inContext = c.GetString("requestID")
		c.Status(http.StatusOK)
	})

	w := perform(r, http.MethodGet, "/", map[string]string{"X-Request-ID": "upstream-id"})
	if got := w.Header().Get("X-Request-ID"); got != "upstream-id" {
		t.Fatalf("response id = %q; want upstream-id", got)
	}
	if inContext != "upstream-id" {
		t.Fatalf("context id = %q; want upstream-id", inContext)
	}
}

func TestRequestLogger_AttachesScopedLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RequestLogger(RedactOptions{}))
	var hadLogger bool
	r.GET("/", func(c *gin.Context) {
		_, hadLogger = c.Get("logger")
		lg := LoggerFrom(c)
		if lg == nil {
			t.Error("LoggerFrom returned nil")
		}
		c.Status(http.StatusOK)
	})

	perform(r, http.MethodGet, "/", nil)
	if !hadLogger {
		t.Fatal("request-scoped logger not stored in context")
	}
}

func TestLoggerFrom_FallsBackWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if LoggerFrom(c) == nil {
		t.Fatal("LoggerFrom returned nil without the middleware installed")
	}
}

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := perform(r, http.MethodGet, "/boom", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q; want application/json", ct)
	}
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders(SecurityOptions{NoStore: true}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, http.MethodGet, "/", nil)
	h := w.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff")
	}
	if h.Get("X-Frame-Options") != "DENY" {
		t.Error("missing frame denial")
	}
	if h.Get("Referrer-Policy") != "no-referrer" {
		t.Error("missing referrer policy")
	}
	if h.Get("Cache-Control") != "no-store" {
		t.Error("missing no-store")
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Error("HSTS emitted without opt-in")
	}
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders(SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, http.MethodGet, "/", nil)
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS emitted on plain HTTP")
	}

	w = perform(r, http.MethodGet, "/", map[string]string{"X-Forwarded-Proto": "https"})
	if got := w.Header().Get("Strict-Transport-Security"); got == "" {
		t.Fatal("HSTS missing on forwarded HTTPS")
	} else if got != "max-age=3600; includeSubDomains; preload" {
		t.Fatalf("HSTS = %q", got)
	}
}

func TestRateLimiter_AllowsBurstThenRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0, 2, KeyByClientIP())
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if w := perform(r, http.MethodGet, "/", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d; want 200 within burst", i, w.Code)
		}
	}

	w := perform(r, http.MethodGet, "/", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d; want 429 past the burst", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("Retry-After = %q; want 1", w.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_BucketsPerKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	byHeader := func(c *gin.Context) string { return c.GetHeader("X-Client") }
	rl := NewRateLimiter(0, 1, byHeader)
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := perform(r, http.MethodGet, "/", map[string]string{"X-Client": "a"}); w.Code != http.StatusOK {
		t.Fatalf("first a-request status = %d", w.Code)
	}
	if w := perform(r, http.MethodGet, "/", map[string]string{"X-Client": "a"}); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second a-request status = %d; want 429", w.Code)
	}
	// A different identity has its own bucket.
	if w := perform(r, http.MethodGet, "/", map[string]string{"X-Client": "b"}); w.Code != http.StatusOK {
		t.Fatalf("first b-request status = %d; want 200", w.Code)
	}
}
