package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"convmonitor/internal/domain"
	"convmonitor/internal/domain/model"
	"convmonitor/internal/domain/ports/adapter"
)

// Compile-time assurance this provider satisfies the port
var _ adapter.SentimentProvider = (*OpenAIProvider)(nil)

// OpenAIProvider classifies content through an OpenAI-compatible Chat
// Completions endpoint. Base defaults to the public API; any compatible
// gateway works via config.
type OpenAIProvider struct {
	apiKey string
	base   string
	model  string
	client *http.Client
}

func NewOpenAIProvider(apiKey, model, base string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

const classifyPrompt = `Classify the sentiment of the user message. Respond with JSON only:
{"sentiment":"positive|negative|neutral","confidence":0.0,"keywords":["..."],"emotions":["..."]}`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (p *OpenAIProvider) Analyze(ctx context.Context, content string) (*model.SentimentScore, error) {
	if strings.TrimSpace(content) == "" {
		return &model.SentimentScore{Sentiment: model.SentimentNeutral, Confidence: 0}, nil
	}

	reqBody := struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: classifyPrompt},
			{Role: "user", Content: content},
		},
	}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, p.base+"/chat/completions", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: openai http %d", domain.ErrProvider, resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrProvider, err)
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return parseScore(c.Message.Content)
		}
	}
	return nil, fmt.Errorf("%w: no choice content", domain.ErrProvider)
}

// parseScore tolerates models wrapping the JSON in code fences.
func parseScore(raw string) (*model.SentimentScore, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var score model.SentimentScore
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &score); err != nil {
		return nil, fmt.Errorf("%w: malformed classification: %v", domain.ErrProvider, err)
	}
	switch score.Sentiment {
	case model.SentimentPositive, model.SentimentNegative, model.SentimentNeutral:
	default:
		return nil, fmt.Errorf("%w: unknown sentiment %q", domain.ErrProvider, score.Sentiment)
	}
	if score.Confidence < 0 || score.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence out of range", domain.ErrProvider)
	}
	return &score, nil
}
