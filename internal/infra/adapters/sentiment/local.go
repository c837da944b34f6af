package sentiment

import (
	"context"
	"regexp"
	"strings"

	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/adapter"
)

// Compile-time assurance this provider satisfies the port
var _ adapter.SentimentProvider = (*LocalProvider)(nil)

// LocalProvider is the deterministic rule-based classifier used when no
// external provider is configured. It counts matches against fixed word
// lists; no network calls, no state.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (p *LocalProvider) Name() string { return "local" }

var positiveWords = map[string]bool{
	"good": true, "great": true, "excellent": true, "amazing": true,
	"awesome": true, "love": true, "happy": true, "wonderful": true,
	"fantastic": true, "best": true, "perfect": true, "helpful": true,
	"thanks": true, "thank": true, "pleased": true, "satisfied": true,
	"nice": true, "glad": true, "enjoy": true, "recommend": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "awful": true, "hate": true,
	"horrible": true, "worst": true, "poor": true, "angry": true,
	"disappointed": true, "problem": true, "broken": true, "slow": true,
	"useless": true, "annoying": true, "frustrated": true, "wrong": true,
	"fail": true, "failed": true, "refund": true, "complaint": true,
}

var wordSplit = regexp.MustCompile(`\W+`)

// Analyze scores content by positive-vs-negative word counts.
// Confidence is min(0.9, 0.5 + 0.1*|pos-neg|), with 0.5 for a tie and a
// zero-confidence neutral for blank content.
func (p *LocalProvider) Analyze(_ context.Context, content string) (*model.SentimentScore, error) {
	if strings.TrimSpace(content) == "" {
		return &model.SentimentScore{Sentiment: model.SentimentNeutral, Confidence: 0}, nil
	}

	var pos, neg int
	var matched []string
	for _, tok := range wordSplit.Split(strings.ToLower(content), -1) {
		if tok == "" {
			continue
		}
		switch {
		case positiveWords[tok]:
			pos++
			matched = append(matched, tok)
		case negativeWords[tok]:
			neg++
			matched = append(matched, tok)
		}
	}

	diff := pos - neg
	if diff < 0 {
		diff = -diff
	}
	confidence := 0.5 + 0.1*float64(diff)
	if confidence > 0.9 {
		confidence = 0.9
	}

	score := &model.SentimentScore{Confidence: confidence, Keywords: matched}
	switch {
	case pos > neg:
		score.Sentiment = model.SentimentPositive
	case neg > pos:
		score.Sentiment = model.SentimentNegative
	default:
		score.Sentiment = model.SentimentNeutral
		score.Confidence = 0.5
	}
	return score, nil
}
