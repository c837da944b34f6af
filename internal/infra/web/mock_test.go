//go:build !integration

package web

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/repository"
	"convmonitor/internal/usecase"
)

// --- Mock Use Cases ---
//
// Each mock delegates to an optional func field so tests can script a
// single behavior without building a full in-memory implementation.

type mockJobUC struct {
	CreateFunc       func(ctx context.Context, jobType model.JobType, data json.RawMessage, priority model.JobPriority, tenantID string) (*model.ProcessingJob, error)
	CreateBatchFunc  func(ctx context.Context, jobs []*model.ProcessingJob) ([]*model.ProcessingJob, error)
	ListFunc         func(ctx context.Context, filter repository.JobFilter) ([]*model.ProcessingJob, error)
	GetFunc          func(ctx context.Context, id string) (*model.ProcessingJob, error)
	UpdateStatusFunc func(ctx context.Context, id string, upd repository.JobUpdate) error
	DeleteFunc       func(ctx context.Context, id string) error
}

var _ usecase.JobUseCase = (*mockJobUC)(nil)

func (m *mockJobUC) Create(ctx context.Context, jobType model.JobType, data json.RawMessage, priority model.JobPriority, tenantID string) (*model.ProcessingJob, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, jobType, data, priority, tenantID)
	}
	job, err := model.NewProcessingJob(jobType, data, priority, tenantID)
	if err != nil {
		return nil, err
	}
	job.ID = uuid.NewString()
	return job, nil
}

func (m *mockJobUC) CreateBatch(ctx context.Context, jobs []*model.ProcessingJob) ([]*model.ProcessingJob, error) {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, jobs)
	}
	return jobs, nil
}

func (m *mockJobUC) List(ctx context.Context, filter repository.JobFilter) ([]*model.ProcessingJob, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockJobUC) Get(ctx context.Context, id string) (*model.ProcessingJob, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockJobUC) UpdateStatus(ctx context.Context, id string, upd repository.JobUpdate) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, upd)
	}
	return nil
}

func (m *mockJobUC) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

type mockDispatchUC struct {
	ProcessBatchFunc func(ctx context.Context, batchSize int) (*model.BatchProcessingResult, error)
}

var _ usecase.DispatchUseCase = (*mockDispatchUC)(nil)

func (m *mockDispatchUC) ProcessBatch(ctx context.Context, batchSize int) (*model.BatchProcessingResult, error) {
	if m.ProcessBatchFunc != nil {
		return m.ProcessBatchFunc(ctx, batchSize)
	}
	return &model.BatchProcessingResult{}, nil
}

type mockBatchUC struct {
	TriggerBatchFunc func(ctx context.Context, ids []string, provider string, chunkSize int) (*model.SentimentBatchResult, error)
}

var _ usecase.SentimentBatchUseCase = (*mockBatchUC)(nil)

func (m *mockBatchUC) TriggerBatch(ctx context.Context, ids []string, provider string, chunkSize int) (*model.SentimentBatchResult, error) {
	if m.TriggerBatchFunc != nil {
		return m.TriggerBatchFunc(ctx, ids, provider, chunkSize)
	}
	return &model.SentimentBatchResult{}, nil
}

type mockStatsUC struct {
	GetQueueStatsFunc      func(ctx context.Context) (*model.QueueStats, error)
	RecentBatchMetricsFunc func(ctx context.Context, limit int) ([]*model.ProcessingMetrics, error)
}

var _ usecase.QueueStatsUseCase = (*mockStatsUC)(nil)

func (m *mockStatsUC) GetQueueStats(ctx context.Context) (*model.QueueStats, error) {
	if m.GetQueueStatsFunc != nil {
		return m.GetQueueStatsFunc(ctx)
	}
	return model.NewQueueStats(), nil
}

func (m *mockStatsUC) RecentBatchMetrics(ctx context.Context, limit int) ([]*model.ProcessingMetrics, error) {
	if m.RecentBatchMetricsFunc != nil {
		return m.RecentBatchMetricsFunc(ctx, limit)
	}
	return nil, nil
}

type mockTaskUC struct {
	CreateFunc     func(ctx context.Context, name string, jobType model.JobType, data json.RawMessage, priority model.JobPriority, tenantID string, interval time.Duration) (*model.ScheduledTask, error)
	ListFunc       func(ctx context.Context) ([]*model.ScheduledTask, error)
	SetEnabledFunc func(ctx context.Context, id string, enabled bool) error
	DeleteFunc     func(ctx context.Context, id string) error
	RunDueFunc     func(ctx context.Context, now time.Time) (int, error)
}

var _ usecase.ScheduledTaskUseCase = (*mockTaskUC)(nil)

func (m *mockTaskUC) Create(ctx context.Context, name string, jobType model.JobType, data json.RawMessage, priority model.JobPriority, tenantID string, interval time.Duration) (*model.ScheduledTask, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, name, jobType, data, priority, tenantID, interval)
	}
	return model.NewScheduledTask(name, jobType, data, priority, tenantID, interval)
}

func (m *mockTaskUC) List(ctx context.Context) ([]*model.ScheduledTask, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *mockTaskUC) SetEnabled(ctx context.Context, id string, enabled bool) error {
	if m.SetEnabledFunc != nil {
		return m.SetEnabledFunc(ctx, id, enabled)
	}
	return nil
}

func (m *mockTaskUC) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *mockTaskUC) RunDue(ctx context.Context, now time.Time) (int, error) {
	if m.RunDueFunc != nil {
		return m.RunDueFunc(ctx, now)
	}
	return 0, nil
}
