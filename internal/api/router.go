package api

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/wielermanager/internal/api/handlers"
	"github.com/wonny/wielermanager/pkg/logger"
	"github.com/wonny/wielermanager/pkg/redis"
)

// Handlers groups the endpoint handlers
type Handlers struct {
	Game    *handlers.GameHandler
	Solve   *handlers.SolveHandler
	Collect *handlers.CollectHandler
}

// HTTPObserver records request outcomes
type HTTPObserver interface {
	ObserveHTTP(route string, code int)
	Handler() http.Handler
}

// Options holds optional router dependencies
type Options struct {
	Metrics HTTPObserver       // nil disables /metrics
	Limiter *redis.RateLimiter // nil disables solve rate limiting
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: routing is configured in this function only
func NewRouter(h Handlers, opts Options, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Game data
	api.HandleFunc("/riders", h.Game.GetRiders).Methods("GET")
	api.HandleFunc("/races", h.Game.GetRaces).Methods("GET")

	// Planning
	solve := api.PathPrefix("/solve").Subrouter()
	solve.HandleFunc("", h.Solve.SolveMILP).Methods("POST")
	solve.HandleFunc("/rank", h.Solve.SolveRank).Methods("POST")
	if opts.Limiter != nil {
		solve.Use(rateLimitMiddleware(opts.Limiter, log))
	}

	api.HandleFunc("/plans/{id}", h.Solve.GetPlan).Methods("GET")
	api.HandleFunc("/plans/{id}/realized", h.Solve.GetRealized).Methods("GET")

	// Collection
	if h.Collect != nil {
		api.HandleFunc("/collect", h.Collect.Collect).Methods("POST")
		api.HandleFunc("/results", h.Collect.RefreshResults).Methods("POST")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log, opts.Metrics))
	r.Use(recoveryMiddleware(log))

	return corsMiddleware(r)
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "wielermanager-api",
	})
}

// statusRecorder captures the response code for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// corsMiddleware allows browser clients from any origin
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger, obs HTTPObserver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			if obs != nil {
				obs.ObserveHTTP(route, rec.status)
			}

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// rateLimitMiddleware bounds solve requests per client address
func rateLimitMiddleware(limiter *redis.RateLimiter, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg := redis.SolveRateLimit.ForClient(clientIP(r))
			d, err := limiter.Allow(r.Context(), cfg)
			if err != nil {
				// fail open when redis is unreachable
				log.WithError(err).Warn("Rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Too many solve requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
