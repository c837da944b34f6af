package repository

import (
	"context"

	"convmonitor/internal/domain/model"
)

type ConversationRepository interface {
	// FindByIDs returns the conversations that exist; missing ids are
	// simply absent from the result, not an error.
	FindByIDs(ctx context.Context, tx Tx, ids []string) ([]*model.Conversation, error)
	SaveNormalization(ctx context.Context, tx Tx, res *model.NormalizationResult) error
	// SaveSentiments persists sentiment fields in writer-side batches to
	// bound statement size. Entries carrying an item error are skipped.
	SaveSentiments(ctx context.Context, results []model.ConversationSentiment) error
}
