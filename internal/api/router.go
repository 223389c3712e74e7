package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Router assembles the HTTP surface. The API is read-only, so CORS is
// wide open for GETs; editors embed the map from arbitrary origins.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/health", handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/osm", s.handleOSM)
		r.Get("/fhrs", s.handleFHRS)
		r.Get("/fhrs/{id}", s.handleFHRSSingle)
		r.Get("/suggest", s.handleSuggest)
		r.Get("/distant", s.handleDistant)
		r.Get("/stats/osm", s.handleStatsOSM)
		r.Get("/stats/fhrs", s.handleStatsFHRS)
		r.Get("/stats/history", s.handleStatsHistory)

		// The CSV export walks every dangling reference, so it gets its
		// own limiter rather than relying on clients to be polite.
		limiter := rate.NewLimiter(rate.Every(time.Minute), 1)
		r.With(throttle(limiter)).Get("/surveyme", s.handleSurveyMe)
	})
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func throttle(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().Debug("api request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
