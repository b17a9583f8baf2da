package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"content_syncer/internal/config"
	"content_syncer/internal/domain"
)

const analysisSystemPrompt = `You are a content analysis engine for a news aggregation platform.
Analyze the user's message and respond with a single JSON object, no markdown fences, no prose.
Schema:
{
  "summary": "short synopsis in the message's language",
  "sentiment": "positive" | "neutral" | "negative" | "unknown",
  "keywords": ["..."],
  "entities": {"organizations": [], "people": [], "tickers": [], "locations": []},
  "category": "optional single category",
  "language": "ISO 639-1 code",
  "factCheck": {"verdict": "verified"|"partially_true"|"false"|"unverified"|"opinion", "score": 0.0, "explanation": "...", "sources": []}
}
Omit optional fields you cannot determine. The score is confidence in [0,1].`

// Analyzer produces structured text analysis through the Anthropic API.
type Analyzer struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	timeout   time.Duration
	logger    *slog.Logger
}

func NewAnalyzer(cfg config.AnthropicConfig, logger *slog.Logger) (*Analyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	return &Analyzer{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     anthropic.Model(cfg.Model),
		maxTokens: int64(cfg.MaxTokens),
		timeout:   cfg.Timeout,
		logger:    logger.With("ai_provider", "anthropic"),
	}, nil
}

func (a *Analyzer) AnalyzeText(ctx context.Context, text string) (*domain.AiAnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("analysis text is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: analysisSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("anthropic returned no text content")
	}

	result, err := parseAnalysis(sb.String())
	if err != nil {
		return nil, err
	}

	a.logger.Debug("analyzed text",
		"text_length", len(text),
		"duration", time.Since(start),
	)

	return result, nil
}

// parseAnalysis decodes the model's JSON reply, tolerating the markdown
// fences models sometimes wrap around structured output.
func parseAnalysis(reply string) (*domain.AiAnalysisResult, error) {
	raw := stripFences(reply)

	var result domain.AiAnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("parse analysis response: %w", err)
	}
	if result.Summary == "" {
		return nil, fmt.Errorf("analysis response has no summary")
	}
	if result.Sentiment == "" {
		result.Sentiment = domain.SentimentUnknown
	}
	return &result, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
