package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/repository"
	"convmonitor/internal/usecase"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDomainError maps domain sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrUnsupportedJobType):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrDispatchBusy):
		http.Error(w, "A batch is already being processed", http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ---- jobs ----

type jobCreateRequest struct {
	Type     model.JobType     `json:"type"`
	Data     json.RawMessage   `json:"data"`
	Priority model.JobPriority `json:"priority"`
	TenantID string            `json:"tenant_id"`
}

func jobCreateHandler(jobUC usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req jobCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.TenantID == "" {
			req.TenantID = r.Header.Get("X-Tenant-ID")
		}

		job, err := jobUC.Create(ctx, req.Type, req.Data, req.Priority, req.TenantID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, job)
	}
}

func jobCreateBatchHandler(jobUC usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var reqs []jobCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if len(reqs) == 0 {
			http.Error(w, "Empty batch", http.StatusBadRequest)
			return
		}

		tenant := r.Header.Get("X-Tenant-ID")
		jobs := make([]*model.ProcessingJob, 0, len(reqs))
		for _, req := range reqs {
			if req.TenantID == "" {
				req.TenantID = tenant
			}
			job, err := model.NewProcessingJob(req.Type, req.Data, req.Priority, req.TenantID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			jobs = append(jobs, job)
		}

		created, err := jobUC.CreateBatch(ctx, jobs)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, struct {
			Data  []*model.ProcessingJob `json:"data"`
			Count int                    `json:"count"`
		}{Data: created, Count: len(created)})
	}
}

func jobListHandler(jobUC usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()

		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		filter := repository.JobFilter{
			Status:   model.JobStatus(q.Get("status")),
			Type:     model.JobType(q.Get("type")),
			Priority: model.JobPriority(q.Get("priority")),
			TenantID: q.Get("tenant_id"),
			Limit:    limit,
			Offset:   offset,
		}

		jobs, err := jobUC.List(ctx, filter)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Data   []*model.ProcessingJob `json:"data"`
			Limit  int                    `json:"limit"`
			Offset int                    `json:"offset"`
		}{Data: jobs, Limit: filter.Limit, Offset: filter.Offset})
	}
}

func jobGetHandler(jobUC usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := jobUC.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func jobDeleteHandler(jobUC usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := jobUC.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ---- dispatch ----

type processBatchRequest struct {
	BatchSize int `json:"batch_size"`
}

func processBatchHandler(dispatchUC usecase.DispatchUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req processBatchRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
		}

		res, err := dispatchUC.ProcessBatch(ctx, req.BatchSize)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ---- sentiment batch ----

type sentimentBatchRequest struct {
	ConversationIDs []string `json:"conversation_ids"`
	Provider        string   `json:"provider"`
	ChunkSize       int      `json:"chunk_size"`
}

func sentimentBatchHandler(batchUC usecase.SentimentBatchUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req sentimentBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		res, err := batchUC.TriggerBatch(ctx, req.ConversationIDs, req.Provider, req.ChunkSize)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ---- queue stats ----

func queueStatsHandler(statsUC usecase.QueueStatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := statsUC.GetQueueStats(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func recentBatchesHandler(statsUC usecase.QueueStatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 20
		}
		rows, err := statsUC.RecentBatchMetrics(r.Context(), limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Data []*model.ProcessingMetrics `json:"data"`
		}{Data: rows})
	}
}

// ---- scheduled tasks ----

type taskCreateRequest struct {
	Name            string            `json:"name"`
	Type            model.JobType     `json:"type"`
	Data            json.RawMessage   `json:"data"`
	Priority        model.JobPriority `json:"priority"`
	TenantID        string            `json:"tenant_id"`
	IntervalSeconds int               `json:"interval_seconds"`
}

func taskCreateHandler(taskUC usecase.ScheduledTaskUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req taskCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.TenantID == "" {
			req.TenantID = r.Header.Get("X-Tenant-ID")
		}

		task, err := taskUC.Create(ctx, req.Name, req.Type, req.Data, req.Priority, req.TenantID,
			time.Duration(req.IntervalSeconds)*time.Second)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, task)
	}
}

func taskListHandler(taskUC usecase.ScheduledTaskUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks, err := taskUC.List(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Data []*model.ScheduledTask `json:"data"`
		}{Data: tasks})
	}
}

type taskEnableRequest struct {
	Enabled *bool `json:"enabled"`
}

func taskEnableHandler(taskUC usecase.ScheduledTaskUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req taskEnableRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := taskUC.SetEnabled(r.Context(), chi.URLParam(r, "id"), *req.Enabled); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func taskDeleteHandler(taskUC usecase.ScheduledTaskUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := taskUC.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
