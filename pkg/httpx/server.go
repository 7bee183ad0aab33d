package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
)

// ServerConfig holds the options for NewRouter.
type ServerConfig struct {
	ServiceName   string
	IsDevelopment bool
	// CORSAllowedOrigins is a comma-separated list of allowed origins.
	// Pass "*" (dev only) to allow all origins.
	CORSAllowedOrigins string
	// RequestsPerMinute caps requests per client IP. Zero means 100.
	RequestsPerMinute int
	// MaxBodyBytes caps request bodies. Zero means 1 MB.
	MaxBodyBytes int64
}

// NewRouter returns a chi.Mux pre-wired with the standard middleware stack.
// Pass app-specific middlewares (logger, recovery, sentry, otel) in order;
// they are prepended before the chi built-ins.
//
// Middleware order (outermost → innermost):
//  1. recoveryMiddleware: catches panics that re-panic from sentry
//  2. sentryMiddleware: captures panics, re-panics (Repanic: true)
//  3. RequestID: unique X-Request-Id per request
//  4. otelMiddleware: starts trace span per request
//  5. loggerMiddleware: logs request + trace_id/span_id
//  6. RealIP: sets RemoteAddr from X-Forwarded-For
//  7. RateLimit: cfg.RequestsPerMinute per IP
//  8. CORS: cross-origin preflight and headers, credentials for named origins
//  9. BodyLimit: cfg.MaxBodyBytes
//  10. Timeout: 30 s handler deadline
//  11. Security headers: CSP, HSTS, X-Frame-Options, Permissions-Policy
func NewRouter(
	cfg ServerConfig,
	loggerMiddleware func(http.Handler) http.Handler,
	recoveryMiddleware func(http.Handler) http.Handler,
	sentryMiddleware func(http.Handler) http.Handler,
	otelMiddleware func(http.Handler) http.Handler,
) *chi.Mux {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 100
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	sec := secure.New(secure.Options{
		STSSeconds:           63072000,
		STSIncludeSubdomains: true,
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		ReferrerPolicy:       "strict-origin-when-cross-origin",
		// Swagger UI under /swagger loads its own inline bootstrap script.
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), usb=(), magnetometer=(), gyroscope=()",
		IsDevelopment:         cfg.IsDevelopment,
	})

	r := chi.NewRouter()
	r.Use(
		recoveryMiddleware,
		sentryMiddleware,
		middleware.RequestID,
		otelMiddleware,
		loggerMiddleware,
		middleware.RealIP,
		httprate.Limit(perMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(tooManyRequests),
		),
		CORSMiddleware(cfg.CORSAllowedOrigins),
		RequestBodyLimit(maxBody),
		middleware.Timeout(30*time.Second),
		sec.Handler,
	)
	return r
}

// WriteLimit caps mutating requests (anything but GET, HEAD and OPTIONS) to n
// per window for each key. key usually returns the signed-in user id; when it
// returns "" the client IP is used. n <= 0 disables the limit.
func WriteLimit(n int, window time.Duration, key func(*http.Request) string) func(http.Handler) http.Handler {
	if n <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := httprate.Limit(n, window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if k := key(r); k != "" {
				return "user:" + k, nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(tooManyRequests),
	)
	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				limited.ServeHTTP(w, r)
			}
		})
	}
}

func tooManyRequests(w http.ResponseWriter, _ *http.Request) {
	JSONError(w, http.StatusTooManyRequests, "too many requests, please slow down")
}

// CORSMiddleware returns a CORS handler restricted to the given allowed origins.
// allowedOrigins is a comma-separated list (e.g. "https://app.example.com,http://localhost:3000").
// Pass "*" to allow all origins (development only).
func CORSMiddleware(allowedOrigins string) func(http.Handler) http.Handler {
	origins := parseOrigins(allowedOrigins)
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Location", "X-Request-Id"},
		// Session cookies only cross origins that are named explicitly.
		AllowCredentials: !(len(origins) == 1 && origins[0] == "*"),
		MaxAge:           300,
	})
}

// parseOrigins splits a comma-separated origins string into a slice, trimming spaces.
func parseOrigins(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p := strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// RequestBodyLimit returns middleware that caps the request body at maxBytes.
// When the limit is exceeded, reads on the body return an error that handlers
// should convert to a 413 response.
func RequestBodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// NewServer returns an *http.Server with production-ready timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}
}
