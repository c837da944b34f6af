package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/adapter"
	"convmonitor/internal/domain/ports/repository"
	"convmonitor/internal/infra/metrics"
	red "convmonitor/internal/infra/redis"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ SentimentBatchUseCase = (*sentimentBatchUC)(nil)

type SentimentBatchUseCase interface {
	// TriggerBatch classifies the given conversations in paced sequential
	// chunks. chunkSize 0 means the configured default. The result always
	// holds one entry per requested id, whatever failed along the way.
	TriggerBatch(ctx context.Context, conversationIDs []string, providerName string, chunkSize int) (*model.SentimentBatchResult, error)
}

// ChunkLimiter is the subset of the redis rate limiter the coordinator
// consults before each chunk.
type ChunkLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) (time.Duration, error)
}

type SentimentBatchConfig struct {
	DefaultChunkSize int
	MaxChunkSize     int
	MaxIDs           int
	ChunkPause       time.Duration
	RateLimit        int
	RateWindow       time.Duration
}

type sentimentBatchUC struct {
	convRepo    repository.ConversationRepository
	metricsRepo repository.MetricsRepository
	providers   *ProviderRegistry
	limiter     ChunkLimiter
	cfg         SentimentBatchConfig
	log         *zerolog.Logger
}

func NewSentimentBatchUseCase(
	convRepo repository.ConversationRepository,
	metricsRepo repository.MetricsRepository,
	providers *ProviderRegistry,
	limiter ChunkLimiter,
	cfg SentimentBatchConfig,
	logger *zerolog.Logger,
) *sentimentBatchUC {
	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 50
	}
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = 100
	}
	if cfg.MaxIDs <= 0 {
		cfg.MaxIDs = 1000
	}
	l := logger.With().Str("component", "SentimentBatchUC").Logger()
	return &sentimentBatchUC{
		convRepo:    convRepo,
		metricsRepo: metricsRepo,
		providers:   providers,
		limiter:     limiter,
		cfg:         cfg,
		log:         &l,
	}
}

func (u *sentimentBatchUC) TriggerBatch(ctx context.Context, conversationIDs []string, providerName string, chunkSize int) (*model.SentimentBatchResult, error) {
	if len(conversationIDs) == 0 {
		return nil, fmt.Errorf("%w: conversation_ids is empty", domain.ErrInvalidArgument)
	}
	if len(conversationIDs) > u.cfg.MaxIDs {
		return nil, fmt.Errorf("%w: at most %d conversation_ids per trigger", domain.ErrInvalidArgument, u.cfg.MaxIDs)
	}
	if chunkSize == 0 {
		chunkSize = u.cfg.DefaultChunkSize
	}
	if chunkSize < 1 || chunkSize > u.cfg.MaxChunkSize {
		return nil, fmt.Errorf("%w: chunk_size must be in [1,%d]", domain.ErrInvalidArgument, u.cfg.MaxChunkSize)
	}
	provider, err := u.providers.Resolve(providerName)
	if err != nil {
		return nil, err
	}

	chunks := chunkIDs(conversationIDs, chunkSize)
	u.log.Info().Int("ids", len(conversationIDs)).Int("chunks", len(chunks)).Str("provider", provider.Name()).Msg("sentiment batch started")

	results := make([]model.ConversationSentiment, 0, len(conversationIDs))
	for i, chunk := range chunks {
		if i > 0 {
			if err := u.pace(ctx, provider.Name()); err != nil {
				return nil, err
			}
		}
		results = append(results, u.processChunk(ctx, provider, chunk)...)
	}

	if err := u.convRepo.SaveSentiments(ctx, results); err != nil {
		return nil, err
	}

	batch := summarize(results)
	u.appendMetrics(ctx, provider.Name(), batch, results)

	u.log.Info().Int("processed", batch.TotalProcessed).Int("successful", batch.Successful).Int("failed", batch.Failed).Msg("sentiment batch finished")
	return batch, nil
}

// pace applies the inter-chunk delay and the provider rate limit. A denied
// window pauses until it resets; work is never dropped.
func (u *sentimentBatchUC) pace(ctx context.Context, providerName string) error {
	if u.cfg.ChunkPause > 0 {
		if err := sleep(ctx, u.cfg.ChunkPause); err != nil {
			return err
		}
	}
	if u.limiter == nil || u.cfg.RateLimit <= 0 {
		return nil
	}
	key := red.ProviderKey(providerName)
	for {
		ok, err := u.limiter.Allow(ctx, key, u.cfg.RateLimit, u.cfg.RateWindow)
		if err != nil {
			// Limiter outage must not stall the pipeline.
			u.log.Warn().Err(err).Msg("rate limiter unavailable, proceeding")
			return nil
		}
		if ok {
			return nil
		}
		wait, err := u.limiter.Wait(ctx, key)
		if err != nil || wait <= 0 {
			wait = u.cfg.RateWindow
		}
		u.log.Debug().Dur("wait", wait).Msg("provider window exhausted, pausing")
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// processChunk never returns an error: a chunk-level failure fills every
// unresolved id with a neutral fallback and the caller moves on.
func (u *sentimentBatchUC) processChunk(ctx context.Context, provider adapter.SentimentProvider, ids []string) (out []model.ConversationSentiment) {
	resolved := make(map[string]bool, len(ids))
	defer func() {
		if r := recover(); r != nil {
			u.log.Error().Interface("panic", r).Msg("sentiment chunk panicked")
			out = fillUnresolved(out, ids, resolved, fmt.Sprintf("chunk panic: %v", r))
		}
	}()

	convs, err := u.convRepo.FindByIDs(ctx, repository.NoTX, ids)
	if err != nil {
		u.log.Error().Err(err).Int("chunk_size", len(ids)).Msg("chunk fetch failed")
		return fillUnresolved(out, ids, resolved, fmt.Sprintf("fetch failed: %v", err))
	}
	byID := make(map[string]*model.Conversation, len(convs))
	for _, c := range convs {
		byID[c.ID] = c
	}

	for _, id := range ids {
		conv, ok := byID[id]
		if !ok {
			resolved[id] = true
			metrics.IncSentimentItem(provider.Name(), false)
			out = append(out, model.NeutralSentiment(id, "conversation not found"))
			continue
		}
		start := time.Now()
		score, err := provider.Analyze(ctx, conv.Content)
		metrics.ObserveProviderLatency(provider.Name(), time.Since(start).Milliseconds(), err == nil)
		resolved[id] = true
		if err != nil {
			metrics.IncSentimentItem(provider.Name(), false)
			out = append(out, model.NeutralSentiment(id, err.Error()))
			continue
		}
		metrics.IncSentimentItem(provider.Name(), true)
		out = append(out, model.ConversationSentiment{
			ConversationID: id,
			Sentiment:      score.Sentiment,
			Confidence:     score.Confidence,
			Keywords:       score.Keywords,
		})
	}
	return out
}

func (u *sentimentBatchUC) appendMetrics(ctx context.Context, providerName string, batch *model.SentimentBatchResult, results []model.ConversationSentiment) {
	dist := make(map[model.Sentiment]int)
	var confSum float64
	for _, r := range results {
		dist[r.Sentiment]++
		if r.Error == "" {
			confSum += r.Confidence
		}
	}
	avg := 0.0
	if batch.Successful > 0 {
		avg = confSum / float64(batch.Successful)
	}

	payload, _ := json.Marshal(model.SentimentBatchMetrics{
		TotalProcessed: batch.TotalProcessed,
		Successful:     batch.Successful,
		Failed:         batch.Failed,
		Provider:       providerName,
		AvgConfidence:  avg,
		Distribution:   dist,
	})
	m := &model.ProcessingMetrics{Type: "sentiment_batch", Metrics: payload}
	if err := u.metricsRepo.Append(ctx, repository.NoTX, m); err != nil {
		// Metrics are advisory; the batch result stands either way.
		u.log.Warn().Err(err).Msg("failed to append batch metrics")
	}
}

func summarize(results []model.ConversationSentiment) *model.SentimentBatchResult {
	batch := &model.SentimentBatchResult{TotalProcessed: len(results), Results: results}
	for _, r := range results {
		if r.Error == "" {
			batch.Successful++
		} else {
			batch.Failed++
		}
	}
	return batch
}

func chunkIDs(ids []string, size int) [][]string {
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func fillUnresolved(out []model.ConversationSentiment, ids []string, resolved map[string]bool, reason string) []model.ConversationSentiment {
	for _, id := range ids {
		if !resolved[id] {
			out = append(out, model.NeutralSentiment(id, reason))
		}
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
