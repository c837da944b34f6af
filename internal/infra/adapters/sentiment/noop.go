package sentiment

import (
	"context"

	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/adapter"
)

var _ adapter.SentimentProvider = (*NoopProvider)(nil)

// NoopProvider returns a fixed neutral score for local/dev wiring where no
// classification should happen at all.
type NoopProvider struct{}

func NewNoopProvider() *NoopProvider { return &NoopProvider{} }

func (p *NoopProvider) Name() string { return "noop" }

func (p *NoopProvider) Analyze(ctx context.Context, _ string) (*model.SentimentScore, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return &model.SentimentScore{Sentiment: model.SentimentNeutral, Confidence: 0.5}, nil
}
