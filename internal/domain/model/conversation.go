package model

import "time"

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Conversation is the slice of the tenant conversation store this
// pipeline reads and annotates. The full CRUD surface lives elsewhere.
type Conversation struct {
	ID                  string
	TenantID            string
	Content             string
	NormalizedContent   string
	Keywords            []string
	WordCount           int
	Sentiment           Sentiment
	SentimentConfidence float64
	SentimentUpdatedAt  time.Time
	CreatedAt           time.Time
}

// SentimentScore is what a provider returns for one piece of content.
type SentimentScore struct {
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Keywords   []string  `json:"keywords,omitempty"`
	Emotions   []string  `json:"emotions,omitempty"`
}

// ConversationSentiment is the per-conversation entry of a sentiment
// batch. Error is set (and the score defaulted to neutral/zero) when the
// item could not be classified.
type ConversationSentiment struct {
	ConversationID string    `json:"conversation_id"`
	Sentiment      Sentiment `json:"sentiment"`
	Confidence     float64   `json:"confidence"`
	Keywords       []string  `json:"keywords,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// NeutralSentiment is the fallback recorded for ids a failed chunk never
// resolved.
func NeutralSentiment(conversationID, reason string) ConversationSentiment {
	return ConversationSentiment{
		ConversationID: conversationID,
		Sentiment:      SentimentNeutral,
		Confidence:     0,
		Error:          reason,
	}
}

// SentimentBatchResult aggregates one coordinator run over a list of
// conversation ids. Results holds exactly one entry per requested id.
type SentimentBatchResult struct {
	TotalProcessed int                     `json:"total_processed"`
	Successful     int                     `json:"successful"`
	Failed         int                     `json:"failed"`
	Results        []ConversationSentiment `json:"results"`
}

// NormalizationResult is what the content_normalization handler records
// per conversation.
type NormalizationResult struct {
	ConversationID    string   `json:"conversation_id"`
	NormalizedContent string   `json:"normalized_content"`
	Keywords          []string `json:"keywords"`
	WordCount         int      `json:"word_count"`
}

// TrendPoint is one day of the trend-analysis output.
type TrendPoint struct {
	Day      time.Time `json:"day"`
	Total    int       `json:"total"`
	Positive int       `json:"positive"`
	Negative int       `json:"negative"`
	Neutral  int       `json:"neutral"`
}

// TrendReport is the trend analyzer output, returned verbatim by the
// trend_analysis handler.
type TrendReport struct {
	TenantID string       `json:"tenant_id"`
	From     time.Time    `json:"from"`
	To       time.Time    `json:"to"`
	Points   []TrendPoint `json:"points"`
}
