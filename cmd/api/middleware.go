package main

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/tomasen/realip"
	"golang.org/x/time/rate"

	"github.com/mohafarman/filmlibrary/internal/metrics"
)

type contextKey string

const requestIDContextKey = contextKey("request_id")

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// requestID reuses a well-formed X-Request-ID from the client and otherwise
// generates one. The id is echoed back and attached to error logs.
func (app *application) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", id)

		ctx := context.WithValue(r.Context(), requestIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (app *application) rateLimit(next http.Handler) http.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	// Forget clients that have been quiet for three minutes.
	go func() {
		for {
			time.Sleep(time.Minute)

			mu.Lock()
			for ip, client := range clients {
				if time.Since(client.lastSeen) > 3*time.Minute {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !app.config.Limiter.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		ip := realip.FromRequest(r)

		mu.Lock()

		if _, found := clients[ip]; !found {
			clients[ip] = &client{
				limiter: rate.NewLimiter(rate.Limit(app.config.Limiter.RPS), app.config.Limiter.Burst),
			}
		}
		clients[ip].lastSeen = time.Now()

		if !clients[ip].limiter.Allow() {
			mu.Unlock()
			metrics.RateLimited.Inc()
			app.logger.Debug("rate limit exceeded", map[string]string{"ip": ip})
			app.rateLimitExceededResponse(w, r)
			return
		}

		// Not deferred: the lock must not be held while downstream handlers run.
		mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// enableCORS is a no-op until trusted origins are configured.
func (app *application) enableCORS(next http.Handler) http.Handler {
	if len(app.config.CORS.TrustedOrigins) == 0 {
		return next
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: app.config.CORS.TrustedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Location", "X-Request-ID"},
		MaxAge:         300,
	})(next)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

var idSegment = regexp.MustCompile(`/[0-9]+(/|$)`)

// routeLabel collapses numeric path segments so /v1/films/7 and /v1/films/8
// share one series. All 404 and 405 responses share the "unmatched" label.
func routeLabel(path string, status int) string {
	if status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
		return "unmatched"
	}

	return idSegment.ReplaceAllString(path, "/:id$1")
}

func (app *application) recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		metrics.ActiveRequests.Inc()
		defer metrics.ActiveRequests.Dec()

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)

		metrics.RecordRequest(r.Method, routeLabel(r.URL.Path, sr.status), sr.status, time.Since(start))
	})
}
