//go:build !integration

package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memJobRepo is a small in-memory implementation used by unit tests.
type memJobRepo struct {
	mu        sync.Mutex
	store     map[string]*model.ProcessingJob
	createErr error // simulate persistence failures
	updateErr error
	claimErr  error
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.ProcessingJob)}
}

func (m *memJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.ProcessingJob) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	cp := *job
	m.store[job.ID] = &cp
	return nil
}

func (m *memJobRepo) CreateBatch(ctx context.Context, jobs []*model.ProcessingJob) error {
	for _, j := range jobs {
		if err := m.Create(ctx, nil, j); err != nil {
			return err
		}
	}
	return nil
}

func (m *memJobRepo) List(ctx context.Context, tx repository.Tx, filter repository.JobFilter) ([]*model.ProcessingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ProcessingJob, 0)
	for _, j := range m.store {
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.Type != "" && j.Type != filter.Type {
			continue
		}
		if filter.TenantID != "" && j.TenantID != filter.TenantID {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ProcessingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, upd repository.JobUpdate) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = upd.Status
	if upd.Result != nil {
		j.Result = upd.Result
	}
	if upd.Error != "" {
		j.Error = upd.Error
	}
	if upd.ProcessingTimeMs != 0 {
		j.ProcessingTimeMs = upd.ProcessingTimeMs
	}
	j.UpdatedAt = time.Now()
	return nil
}

func (m *memJobRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *memJobRepo) ClaimPending(ctx context.Context, limit int) ([]*model.ProcessingJob, error) {
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := make([]*model.ProcessingJob, 0)
	for _, j := range m.store {
		if j.Status == model.JobStatusPending {
			pending = append(pending, j)
		}
	}
	sort.Slice(pending, func(i, k int) bool {
		if pending[i].Priority.Rank() != pending[k].Priority.Rank() {
			return pending[i].Priority.Rank() > pending[k].Priority.Rank()
		}
		return pending[i].CreatedAt.Before(pending[k].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]*model.ProcessingJob, 0, len(pending))
	for _, j := range pending {
		j.Status = model.JobStatusProcessing
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memJobRepo) Stats(ctx context.Context) (*model.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := model.NewQueueStats()
	var sum int64
	var completed int
	for _, j := range m.store {
		stats.ByStatus[j.Status]++
		stats.ByType[j.Type]++
		stats.ByPriority[j.Priority]++
		if j.Status == model.JobStatusCompleted {
			sum += j.ProcessingTimeMs
			completed++
		}
	}
	if completed > 0 {
		stats.AvgProcessingTimeMs = float64(sum) / float64(completed)
	}
	return stats, nil
}

// memConversationRepo records side-effect ordering for the end-to-end
// dispatch tests.
type memConversationRepo struct {
	mu            sync.Mutex
	store         map[string]*model.Conversation
	savedOrder    []string // conversation ids in SaveNormalization call order
	sentimentLog  []model.ConversationSentiment
	findErr       error
	findErrOnCall int // 1-based call number that should fail; 0 = every call
	findCalls     int
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{store: make(map[string]*model.Conversation)}
}

func (m *memConversationRepo) add(id, tenantID, content string) {
	m.store[id] = &model.Conversation{ID: id, TenantID: tenantID, Content: content, CreatedAt: time.Now()}
}

func (m *memConversationRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if m.findErr != nil && (m.findErrOnCall == 0 || m.findErrOnCall == m.findCalls) {
		return nil, m.findErr
	}
	out := make([]*model.Conversation, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.store[id]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memConversationRepo) SaveNormalization(ctx context.Context, tx repository.Tx, res *model.NormalizationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[res.ConversationID]
	if !ok {
		return domain.ErrNotFound
	}
	c.NormalizedContent = res.NormalizedContent
	c.Keywords = res.Keywords
	c.WordCount = res.WordCount
	m.savedOrder = append(m.savedOrder, res.ConversationID)
	return nil
}

func (m *memConversationRepo) SaveSentiments(ctx context.Context, results []model.ConversationSentiment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range results {
		if r.Error != "" {
			continue
		}
		if c, ok := m.store[r.ConversationID]; ok {
			c.Sentiment = r.Sentiment
			c.SentimentConfidence = r.Confidence
			c.SentimentUpdatedAt = time.Now()
		}
		m.sentimentLog = append(m.sentimentLog, r)
	}
	return nil
}

// memMetricsRepo collects appended snapshots.
type memMetricsRepo struct {
	mu       sync.Mutex
	appended []*model.ProcessingMetrics
}

func newMemMetricsRepo() *memMetricsRepo { return &memMetricsRepo{} }

func (m *memMetricsRepo) Append(ctx context.Context, tx repository.Tx, pm *model.ProcessingMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pm
	m.appended = append(m.appended, &cp)
	return nil
}

func (m *memMetricsRepo) ListRecent(ctx context.Context, tx repository.Tx, metricsType string, limit int) ([]*model.ProcessingMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ProcessingMetrics, 0)
	for _, pm := range m.appended {
		if pm.Type == metricsType {
			out = append(out, pm)
		}
	}
	return out, nil
}

// memTaskRepo backs the scheduled-task tests.
type memTaskRepo struct {
	mu    sync.Mutex
	store map[string]*model.ScheduledTask
}

func newMemTaskRepo() *memTaskRepo { return &memTaskRepo{store: make(map[string]*model.ScheduledTask)} }

func (m *memTaskRepo) Save(ctx context.Context, tx repository.Tx, task *model.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	cp := *task
	m.store[task.ID] = &cp
	return nil
}

func (m *memTaskRepo) List(ctx context.Context, tx repository.Tx) ([]*model.ScheduledTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ScheduledTask, 0, len(m.store))
	for _, t := range m.store {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memTaskRepo) FindDue(ctx context.Context, now time.Time) ([]*model.ScheduledTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ScheduledTask, 0)
	for _, t := range m.store {
		if t.Due(now) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTaskRepo) MarkRan(ctx context.Context, tx repository.Tx, id string, nextRunAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.NextRunAt = nextRunAt
	return nil
}

func (m *memTaskRepo) SetEnabled(ctx context.Context, tx repository.Tx, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Enabled = enabled
	return nil
}

func (m *memTaskRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

// mockProvider lets tests script per-content classifications and failures.
type mockProvider struct {
	name        string
	AnalyzeFunc func(ctx context.Context, content string) (*model.SentimentScore, error)
}

func (p *mockProvider) Name() string { return p.name }

func (p *mockProvider) Analyze(ctx context.Context, content string) (*model.SentimentScore, error) {
	if p.AnalyzeFunc != nil {
		return p.AnalyzeFunc(ctx, content)
	}
	return &model.SentimentScore{Sentiment: model.SentimentNeutral, Confidence: 0.5}, nil
}

// mockLocker simulates the dispatch mutual-exclusion lock.
type mockLocker struct {
	mu     sync.Mutex
	held   bool
	denied int // counts rejected TryLock attempts
}

func (l *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		l.denied++
		return "", domain.ErrDispatchBusy
	}
	l.held = true
	return uuid.NewString(), nil
}

func (l *mockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}
