package adapter

import (
	"context"

	"convmonitor/internal/domain/model"
)

// SentimentProvider classifies one piece of content. Implementations are
// external collaborators: the local rule-based scorer or a managed NLP API.
type SentimentProvider interface {
	Name() string
	Analyze(ctx context.Context, content string) (*model.SentimentScore, error)
}
