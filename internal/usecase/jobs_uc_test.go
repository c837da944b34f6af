//go:build !integration

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/repository"
)

func TestJobUC_Create(t *testing.T) {
	ctx := context.Background()
	repo := newMemJobRepo()
	uc := NewJobUseCase(repo, newTestLogger())

	t.Run("new job is pending with result and error unset", func(t *testing.T) {
		data, _ := json.Marshal(model.SentimentJobData{ConversationIDs: []string{"c1", "c2"}})
		job, err := uc.Create(ctx, model.JobTypeSentimentAnalysis, data, model.JobPriorityHigh, "tenant-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		stored, err := repo.FindByID(ctx, nil, job.ID)
		if err != nil {
			t.Fatalf("job not persisted: %v", err)
		}
		if stored.Status != model.JobStatusPending {
			t.Errorf("expected pending, got %s", stored.Status)
		}
		if stored.Result != nil || stored.Error != "" {
			t.Error("result/error must both be unset on creation")
		}
	})

	t.Run("invalid payload is rejected before the store is touched", func(t *testing.T) {
		before := len(repo.store)
		_, err := uc.Create(ctx, model.JobTypeSentimentAnalysis, []byte(`{"conversation_ids":[]}`), "", "")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if len(repo.store) != before {
			t.Error("rejected job must not be persisted")
		}
	})
}

func TestJobUC_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	newJob := func(t *testing.T, repo *memJobRepo, status model.JobStatus) *model.ProcessingJob {
		t.Helper()
		data, _ := json.Marshal(model.NormalizationJobData{ConversationIDs: []string{"c1"}})
		job, err := model.NewProcessingJob(model.JobTypeContentNormalization, data, "", "")
		if err != nil {
			t.Fatal(err)
		}
		job.Status = status
		if err := repo.Create(ctx, nil, job); err != nil {
			t.Fatal(err)
		}
		return job
	}

	t.Run("completing twice with same arguments is idempotent", func(t *testing.T) {
		repo := newMemJobRepo()
		uc := NewJobUseCase(repo, newTestLogger())
		job := newJob(t, repo, model.JobStatusProcessing)

		upd := repository.JobUpdate{Status: model.JobStatusCompleted, Result: []byte(`{"n":1}`), ProcessingTimeMs: 12}
		if err := uc.UpdateStatus(ctx, job.ID, upd); err != nil {
			t.Fatalf("first update: %v", err)
		}
		first, _ := repo.FindByID(ctx, nil, job.ID)

		if err := uc.UpdateStatus(ctx, job.ID, upd); err != nil {
			t.Fatalf("second identical update must succeed: %v", err)
		}
		second, _ := repo.FindByID(ctx, nil, job.ID)

		first.UpdatedAt = second.UpdatedAt
		if !reflect.DeepEqual(first, second) {
			t.Errorf("stored job changed on repeat update:\n%+v\n%+v", first, second)
		}
	})

	t.Run("backward transition is rejected", func(t *testing.T) {
		repo := newMemJobRepo()
		uc := NewJobUseCase(repo, newTestLogger())
		job := newJob(t, repo, model.JobStatusProcessing)

		if err := uc.UpdateStatus(ctx, job.ID, repository.JobUpdate{Status: model.JobStatusCompleted, Result: []byte(`{}`)}); err != nil {
			t.Fatal(err)
		}
		err := uc.UpdateStatus(ctx, job.ID, repository.JobUpdate{Status: model.JobStatusPending})
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("result and error are mutually exclusive", func(t *testing.T) {
		repo := newMemJobRepo()
		uc := NewJobUseCase(repo, newTestLogger())
		job := newJob(t, repo, model.JobStatusProcessing)

		err := uc.UpdateStatus(ctx, job.ID, repository.JobUpdate{
			Status: model.JobStatusCompleted, Result: []byte(`{}`), Error: "oops",
		})
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("unknown id yields not-found", func(t *testing.T) {
		uc := NewJobUseCase(newMemJobRepo(), newTestLogger())
		err := uc.UpdateStatus(ctx, "nope", repository.JobUpdate{Status: model.JobStatusProcessing})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestJobUC_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newMemJobRepo()
	uc := NewJobUseCase(repo, newTestLogger())

	if err := uc.Delete(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
