//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/repository"
)

func newPendingJob(t *testing.T, priority model.JobPriority, createdAt time.Time) *model.ProcessingJob {
	t.Helper()
	data, _ := json.Marshal(model.SentimentJobData{ConversationIDs: []string{"c1"}})
	job, err := model.NewProcessingJob(model.JobTypeSentimentAnalysis, data, priority, "")
	if err != nil {
		t.Fatalf("failed to build job: %v", err)
	}
	job.ID = uuid.NewString()
	job.CreatedAt = createdAt
	return job
}

func TestJobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	tm := NewTxManager(testPool)
	repo := NewJobRepo(testPool, tm)

	t.Run("should create and find a job", func(t *testing.T) {
		cleanup(t)

		job := newPendingJob(t, model.JobPriorityHigh, time.Now())
		job.TenantID = "acme"
		if err := repo.Create(ctx, repository.NoTX, job); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}

		got, err := repo.FindByID(ctx, repository.NoTX, job.ID)
		if err != nil {
			t.Fatalf("failed to find job: %v", err)
		}
		if got.Status != model.JobStatusPending || got.TenantID != "acme" || got.Priority != model.JobPriorityHigh {
			t.Errorf("unexpected job: %+v", got)
		}
	})

	t.Run("empty tenant is stored as NULL", func(t *testing.T) {
		cleanup(t)

		job := newPendingJob(t, model.JobPriorityLow, time.Now())
		if err := repo.Create(ctx, repository.NoTX, job); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}

		var tenant *string
		if err := testPool.QueryRow(ctx, "SELECT tenant_id FROM processing_jobs WHERE id = $1", job.ID).Scan(&tenant); err != nil {
			t.Fatalf("failed to query job: %v", err)
		}
		if tenant != nil {
			t.Errorf("expected NULL tenant_id, got %q", *tenant)
		}
	})

	t.Run("claim orders by priority then age and marks processing", func(t *testing.T) {
		cleanup(t)

		base := time.Now().Add(-time.Minute)
		lowOld := newPendingJob(t, model.JobPriorityLow, base)
		highNew := newPendingJob(t, model.JobPriorityHigh, base.Add(10*time.Second))
		highOld := newPendingJob(t, model.JobPriorityHigh, base.Add(5*time.Second))
		for _, j := range []*model.ProcessingJob{lowOld, highNew, highOld} {
			if err := repo.Create(ctx, repository.NoTX, j); err != nil {
				t.Fatalf("failed to create job: %v", err)
			}
		}

		claimed, err := repo.ClaimPending(ctx, 2)
		if err != nil {
			t.Fatalf("failed to claim: %v", err)
		}
		if len(claimed) != 2 {
			t.Fatalf("expected 2 claimed jobs, got %d", len(claimed))
		}
		if claimed[0].ID != highOld.ID || claimed[1].ID != highNew.ID {
			t.Errorf("wrong claim order: got [%s %s], want [%s %s]",
				claimed[0].ID, claimed[1].ID, highOld.ID, highNew.ID)
		}
		for _, j := range claimed {
			if j.Status != model.JobStatusProcessing {
				t.Errorf("claimed job %s not marked processing: %s", j.ID, j.Status)
			}
		}

		// The low-priority job must still be pending.
		var status string
		if err := testPool.QueryRow(ctx, "SELECT status FROM processing_jobs WHERE id = $1", lowOld.ID).Scan(&status); err != nil {
			t.Fatalf("failed to query job: %v", err)
		}
		if status != string(model.JobStatusPending) {
			t.Errorf("unclaimed job should stay pending, got %s", status)
		}
	})

	t.Run("claim skips rows locked by a concurrent dispatcher", func(t *testing.T) {
		cleanup(t)

		base := time.Now().Add(-time.Minute)
		first := newPendingJob(t, model.JobPriorityMedium, base)
		second := newPendingJob(t, model.JobPriorityMedium, base.Add(time.Second))
		repo.Create(ctx, repository.NoTX, first)
		repo.Create(ctx, repository.NoTX, second)

		// Simulate another worker holding the first job.
		tx, err := testPool.Begin(ctx)
		if err != nil {
			t.Fatalf("failed to begin transaction: %v", err)
		}
		defer tx.Rollback(ctx)
		if _, err := tx.Exec(ctx, "SELECT id FROM processing_jobs WHERE id = $1 FOR UPDATE", first.ID); err != nil {
			t.Fatalf("failed to lock row: %v", err)
		}

		claimed, err := repo.ClaimPending(ctx, 2)
		if err != nil {
			t.Fatalf("failed to claim: %v", err)
		}
		if len(claimed) != 1 || claimed[0].ID != second.ID {
			t.Errorf("expected only the unlocked job, got %d claimed", len(claimed))
		}
	})

	t.Run("batch create is atomic", func(t *testing.T) {
		cleanup(t)

		good := newPendingJob(t, model.JobPriorityMedium, time.Now())
		dup := newPendingJob(t, model.JobPriorityMedium, time.Now())
		dup.ID = good.ID // primary key collision

		if err := repo.CreateBatch(ctx, []*model.ProcessingJob{good, dup}); err == nil {
			t.Fatal("expected batch insert to fail")
		}

		var count int
		if err := testPool.QueryRow(ctx, "SELECT COUNT(*) FROM processing_jobs").Scan(&count); err != nil {
			t.Fatalf("failed to count jobs: %v", err)
		}
		if count != 0 {
			t.Errorf("expected no rows after failed batch, got %d", count)
		}
	})

	t.Run("update status records outcome fields", func(t *testing.T) {
		cleanup(t)

		job := newPendingJob(t, model.JobPriorityMedium, time.Now())
		repo.Create(ctx, repository.NoTX, job)

		result := json.RawMessage(`{"ok":true}`)
		err := repo.UpdateStatus(ctx, repository.NoTX, job.ID, repository.JobUpdate{
			Status:           model.JobStatusCompleted,
			Result:           result,
			ProcessingTimeMs: 42,
		})
		if err != nil {
			t.Fatalf("failed to update status: %v", err)
		}

		got, err := repo.FindByID(ctx, repository.NoTX, job.ID)
		if err != nil {
			t.Fatalf("failed to find job: %v", err)
		}
		if got.Status != model.JobStatusCompleted || got.ProcessingTimeMs != 42 || len(got.Result) == 0 {
			t.Errorf("outcome not recorded: %+v", got)
		}
	})

	t.Run("update of an unknown job is ErrNotFound", func(t *testing.T) {
		cleanup(t)
		err := repo.UpdateStatus(ctx, repository.NoTX, uuid.NewString(), repository.JobUpdate{Status: model.JobStatusFailed, Error: "boom"})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete of an unknown job is ErrNotFound", func(t *testing.T) {
		cleanup(t)
		if err := repo.Delete(ctx, repository.NoTX, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("stats group counts and average completed time", func(t *testing.T) {
		cleanup(t)

		a := newPendingJob(t, model.JobPriorityHigh, time.Now())
		b := newPendingJob(t, model.JobPriorityLow, time.Now())
		c := newPendingJob(t, model.JobPriorityLow, time.Now())
		for _, j := range []*model.ProcessingJob{a, b, c} {
			repo.Create(ctx, repository.NoTX, j)
		}
		repo.UpdateStatus(ctx, repository.NoTX, a.ID, repository.JobUpdate{Status: model.JobStatusCompleted, ProcessingTimeMs: 100})
		repo.UpdateStatus(ctx, repository.NoTX, b.ID, repository.JobUpdate{Status: model.JobStatusCompleted, ProcessingTimeMs: 300})
		repo.UpdateStatus(ctx, repository.NoTX, c.ID, repository.JobUpdate{Status: model.JobStatusFailed, Error: "boom", ProcessingTimeMs: 900})

		stats, err := repo.Stats(ctx)
		if err != nil {
			t.Fatalf("failed to get stats: %v", err)
		}
		if stats.ByStatus[model.JobStatusCompleted] != 2 || stats.ByStatus[model.JobStatusFailed] != 1 {
			t.Errorf("unexpected status counts: %+v", stats.ByStatus)
		}
		if stats.ByPriority[model.JobPriorityLow] != 2 {
			t.Errorf("unexpected priority counts: %+v", stats.ByPriority)
		}
		// Failed jobs are excluded from the average.
		if stats.AvgProcessingTimeMs != 200 {
			t.Errorf("expected avg 200, got %f", stats.AvgProcessingTimeMs)
		}
	})
}
