package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"convmonitor/internal/infra/logging"
	"convmonitor/internal/usecase"
)

type Server struct {
	jobUC      usecase.JobUseCase
	dispatchUC usecase.DispatchUseCase
	batchUC    usecase.SentimentBatchUseCase
	statsUC    usecase.QueueStatsUseCase
	taskUC     usecase.ScheduledTaskUseCase
	apiKey     string
	log        *zerolog.Logger
}

func NewServer(
	jobUC usecase.JobUseCase,
	dispatchUC usecase.DispatchUseCase,
	batchUC usecase.SentimentBatchUseCase,
	statsUC usecase.QueueStatsUseCase,
	taskUC usecase.ScheduledTaskUseCase,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		jobUC:      jobUC,
		dispatchUC: dispatchUC,
		batchUC:    batchUC,
		statsUC:    statsUC,
		taskUC:     taskUC,
		apiKey:     apiKey,
		log:        &l,
	}
}

// Router builds the HTTP surface. Health and metrics are open; everything
// under /api/v1 requires the API key.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(traceContext)
	r.Use(chimw.Recoverer)

	r.Get("/health", healthHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", jobCreateHandler(s.jobUC))
			r.Post("/batch", jobCreateBatchHandler(s.jobUC))
			r.Get("/", jobListHandler(s.jobUC))
			r.Get("/{id}", jobGetHandler(s.jobUC))
			r.Delete("/{id}", jobDeleteHandler(s.jobUC))
		})

		r.Post("/process/batch", processBatchHandler(s.dispatchUC))
		r.Post("/process/sentiment-batch", sentimentBatchHandler(s.batchUC))

		r.Get("/queue/stats", queueStatsHandler(s.statsUC))
		r.Get("/queue/stats/batches", recentBatchesHandler(s.statsUC))

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", taskCreateHandler(s.taskUC))
			r.Get("/", taskListHandler(s.taskUC))
			r.Patch("/{id}", taskEnableHandler(s.taskUC))
			r.Delete("/{id}", taskDeleteHandler(s.taskUC))
		})
	})

	return r
}

// traceContext copies the chi request id into the logging context so
// handlers and use cases emit trace_id on every line.
func traceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			r = r.WithContext(logging.WithTraceID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// authMiddleware provides simple Bearer token authentication for the API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
