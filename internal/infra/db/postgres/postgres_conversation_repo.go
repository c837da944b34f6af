package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/repository"
)

var _ repository.ConversationRepository = (*conversationRepo)(nil)

type conversationRepo struct {
	pool           *pgxpool.Pool
	tm             repository.TransactionManager
	writeBatchSize int
}

func NewConversationRepo(pool *pgxpool.Pool, tm repository.TransactionManager, writeBatchSize int) *conversationRepo {
	if writeBatchSize <= 0 {
		writeBatchSize = 100
	}
	return &conversationRepo{pool: pool, tm: tm, writeBatchSize: writeBatchSize}
}

func (r *conversationRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Conversation, error) {
	if len(ids) == 0 {
		return []*model.Conversation{}, nil
	}
	const q = `
SELECT id, tenant_id, content, COALESCE(normalized_content, ''), COALESCE(keywords, '{}'),
       COALESCE(word_count, 0), COALESCE(sentiment, ''), COALESCE(sentiment_confidence, 0), created_at
FROM conversations
WHERE id = ANY($1);`

	rows, err := pickRows(ctx, r.pool, tx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: find conversations: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	out := make([]*model.Conversation, 0, len(ids))
	for rows.Next() {
		var c model.Conversation
		var sentiment string
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Content, &c.NormalizedContent,
			&c.Keywords, &c.WordCount, &sentiment, &c.SentimentConfidence, &c.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		c.Sentiment = model.Sentiment(sentiment)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *conversationRepo) SaveNormalization(ctx context.Context, tx repository.Tx, res *model.NormalizationResult) error {
	const q = `
UPDATE conversations SET
  normalized_content = $2,
  keywords = $3,
  word_count = $4
WHERE id = $1;`

	tag, err := execSQL(ctx, r.pool, tx, q, res.ConversationID, res.NormalizedContent, res.Keywords, res.WordCount)
	if err != nil {
		return fmt.Errorf("%w: save normalization: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SaveSentiments writes in groups of writeBatchSize, one transaction per
// group, to bound statement size. Items that carry an error annotation are
// not written back; their conversations keep whatever sentiment they had.
func (r *conversationRepo) SaveSentiments(ctx context.Context, results []model.ConversationSentiment) error {
	writable := make([]model.ConversationSentiment, 0, len(results))
	for _, res := range results {
		if res.Error == "" {
			writable = append(writable, res)
		}
	}

	const q = `
UPDATE conversations SET
  sentiment = $2,
  sentiment_confidence = $3,
  sentiment_updated_at = $4
WHERE id = $1;`

	now := time.Now()
	for start := 0; start < len(writable); start += r.writeBatchSize {
		end := start + r.writeBatchSize
		if end > len(writable) {
			end = len(writable)
		}
		group := writable[start:end]
		err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			for _, res := range group {
				if _, err := execSQL(ctx, r.pool, tx, q, res.ConversationID, res.Sentiment, res.Confidence, now); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: save sentiments: %v", domain.ErrPersistence, err)
		}
	}
	return nil
}
