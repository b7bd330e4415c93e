package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/otcpool/internal/service"
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware.
func NewRouter(pool *service.PoolService, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	offerH := NewOfferHandler(pool)
	matchH := NewMatchHandler(pool)
	monitorH := NewMonitorHandler(pool)
	arbH := NewArbitrageHandler(pool)
	analyticsH := NewAnalyticsHandler(pool)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Offer routes.
	r.Post("/offers", offerH.Post)
	r.Get("/offers", offerH.List)
	r.Get("/offers/{id}", offerH.Get)
	r.Delete("/offers/{id}", offerH.Cancel)
	r.Get("/stats", offerH.Stats)

	// Match routes.
	r.Get("/matches/candidates", matchH.Candidates)
	r.Post("/matches", matchH.Execute)
	r.Get("/matches", matchH.Recent)

	// Reference price and monitor routes.
	r.Get("/prices", monitorH.Prices)
	r.Get("/reference", monitorH.Reference)
	r.Get("/monitor", monitorH.Status)
	r.Post("/monitor/start", monitorH.Start)
	r.Post("/monitor/stop", monitorH.Stop)

	// Arbitrage routes.
	r.Post("/arbitrage/scan", arbH.Scan)
	r.Get("/arbitrage/offers/{id}/score", arbH.Score)
	r.Get("/market/impact", arbH.Impact)

	// Analytics routes.
	r.Get("/arbitrage/suggest", analyticsH.Suggest)
	r.Get("/market/insights", analyticsH.Insights)
	r.Get("/performance", analyticsH.Performance)
	r.Get("/export", analyticsH.Export)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests that carry a body. Bodiless commands such as
// POST /monitor/stop pass through.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
