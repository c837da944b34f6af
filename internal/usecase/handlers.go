package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/adapter"
	"convmonitor/internal/domain/ports/repository"
	"convmonitor/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// JobHandler performs the work for one job type. Handle returns the
// job's success payload; any error becomes the job's error field.
type JobHandler interface {
	Type() model.JobType
	Handle(ctx context.Context, job *model.ProcessingJob) (json.RawMessage, error)
}

// HandlerRegistry maps job types to handlers for the dispatcher.
type HandlerRegistry struct {
	byType map[model.JobType]JobHandler
}

func NewHandlerRegistry(handlers ...JobHandler) *HandlerRegistry {
	reg := &HandlerRegistry{byType: make(map[model.JobType]JobHandler, len(handlers))}
	for _, h := range handlers {
		reg.byType[h.Type()] = h
	}
	return reg
}

func (r *HandlerRegistry) Lookup(t model.JobType) (JobHandler, error) {
	h, ok := r.byType[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedJobType, t)
	}
	return h, nil
}

// ProviderRegistry resolves sentiment providers by name, falling back to
// the configured default when a request names none.
type ProviderRegistry struct {
	defaultName string
	providers   map[string]adapter.SentimentProvider
}

func NewProviderRegistry(defaultName string, providers ...adapter.SentimentProvider) *ProviderRegistry {
	reg := &ProviderRegistry{defaultName: defaultName, providers: make(map[string]adapter.SentimentProvider, len(providers))}
	for _, p := range providers {
		reg.providers[p.Name()] = p
	}
	return reg
}

func (r *ProviderRegistry) Resolve(name string) (adapter.SentimentProvider, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidArgument, name)
	}
	return p, nil
}

// ---- sentiment_analysis ----

type sentimentHandler struct {
	convRepo  repository.ConversationRepository
	providers *ProviderRegistry
	log       *zerolog.Logger
}

func NewSentimentHandler(convRepo repository.ConversationRepository, providers *ProviderRegistry, logger *zerolog.Logger) *sentimentHandler {
	l := logger.With().Str("component", "SentimentHandler").Logger()
	return &sentimentHandler{convRepo: convRepo, providers: providers, log: &l}
}

func (h *sentimentHandler) Type() model.JobType { return model.JobTypeSentimentAnalysis }

// Handle classifies each conversation in the payload. A provider error on
// one conversation is recorded on that item only; the job itself succeeds
// as long as it could run at all.
func (h *sentimentHandler) Handle(ctx context.Context, job *model.ProcessingJob) (json.RawMessage, error) {
	var data model.SentimentJobData
	if err := json.Unmarshal(job.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: decode sentiment payload: %v", domain.ErrInvalidArgument, err)
	}
	provider, err := h.providers.Resolve(data.Provider)
	if err != nil {
		return nil, err
	}

	convs, err := h.convRepo.FindByIDs(ctx, repository.NoTX, data.ConversationIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}
	byID := make(map[string]*model.Conversation, len(convs))
	for _, c := range convs {
		byID[c.ID] = c
	}

	results := make([]model.ConversationSentiment, 0, len(data.ConversationIDs))
	for _, id := range data.ConversationIDs {
		conv, ok := byID[id]
		if !ok {
			results = append(results, model.NeutralSentiment(id, "conversation not found"))
			continue
		}
		start := time.Now()
		score, err := provider.Analyze(ctx, conv.Content)
		latency := time.Since(start).Milliseconds()
		metrics.ObserveProviderLatency(provider.Name(), latency, err == nil)
		if err != nil {
			h.log.Warn().Err(err).Str("conversation_id", id).Msg("provider classification failed")
			results = append(results, model.NeutralSentiment(id, err.Error()))
			continue
		}
		results = append(results, model.ConversationSentiment{
			ConversationID: id,
			Sentiment:      score.Sentiment,
			Confidence:     score.Confidence,
			Keywords:       score.Keywords,
		})
	}

	return json.Marshal(results)
}

// ---- content_normalization ----

type normalizationHandler struct {
	convRepo repository.ConversationRepository
	log      *zerolog.Logger
}

func NewNormalizationHandler(convRepo repository.ConversationRepository, logger *zerolog.Logger) *normalizationHandler {
	l := logger.With().Str("component", "NormalizationHandler").Logger()
	return &normalizationHandler{convRepo: convRepo, log: &l}
}

func (h *normalizationHandler) Type() model.JobType { return model.JobTypeContentNormalization }

func (h *normalizationHandler) Handle(ctx context.Context, job *model.ProcessingJob) (json.RawMessage, error) {
	var data model.NormalizationJobData
	if err := json.Unmarshal(job.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: decode normalization payload: %v", domain.ErrInvalidArgument, err)
	}

	convs, err := h.convRepo.FindByIDs(ctx, repository.NoTX, data.ConversationIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}

	results := make([]model.NormalizationResult, 0, len(convs))
	for _, conv := range convs {
		res := NormalizeContent(conv.ID, conv.Content)
		if err := h.convRepo.SaveNormalization(ctx, repository.NoTX, res); err != nil {
			return nil, fmt.Errorf("save normalization for %s: %w", conv.ID, err)
		}
		results = append(results, *res)
	}

	return json.Marshal(results)
}

const maxKeywords = 10

// NormalizeContent collapses whitespace, counts words, and extracts up to
// ten significant tokens: longer than 3 runes, case-folded, de-duplicated
// in order of first appearance.
func NormalizeContent(conversationID, content string) *model.NormalizationResult {
	fields := strings.Fields(content)
	normalized := strings.Join(fields, " ")

	seen := make(map[string]bool)
	keywords := make([]string, 0, maxKeywords)
	for _, f := range fields {
		tok := strings.ToLower(strings.Trim(f, ".,!?;:\"'()"))
		if len(tok) <= 3 || seen[tok] {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
		if len(keywords) == maxKeywords {
			break
		}
	}

	return &model.NormalizationResult{
		ConversationID:    conversationID,
		NormalizedContent: normalized,
		Keywords:          keywords,
		WordCount:         len(fields),
	}
}

// ---- trend_analysis ----

type trendHandler struct {
	analyzer adapter.TrendAnalyzer
}

func NewTrendHandler(analyzer adapter.TrendAnalyzer) *trendHandler {
	return &trendHandler{analyzer: analyzer}
}

func (h *trendHandler) Type() model.JobType { return model.JobTypeTrendAnalysis }

// Handle is a pass-through: the analyzer's report is the job result.
func (h *trendHandler) Handle(ctx context.Context, job *model.ProcessingJob) (json.RawMessage, error) {
	var data model.TrendJobData
	if err := json.Unmarshal(job.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: decode trend payload: %v", domain.ErrInvalidArgument, err)
	}
	report, err := h.analyzer.Analyze(ctx, data.TenantID, data.From, data.To)
	if err != nil {
		return nil, fmt.Errorf("trend analysis: %w", err)
	}
	sort.Slice(report.Points, func(i, j int) bool { return report.Points[i].Day.Before(report.Points[j].Day) })
	return json.Marshal(report)
}
