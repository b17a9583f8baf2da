package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"content_syncer/internal/domain"
)

// DefaultLimit bounds a fetch when the caller does not ask for a specific
// batch size.
const DefaultLimit = 50

// Config holds message-gateway client configuration.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Strategy fetches recent channel messages through the Telegram message
// gateway. It always asks for the most recent N with zero offset;
// incrementality is the pipeline's job, not the fetcher's.
type Strategy struct {
	httpClient     *http.Client
	baseURL        string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Strategy {
	return &Strategy{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source_type", domain.SourceTypeTelegram),
	}
}

func (s *Strategy) Type() domain.SourceType {
	return domain.SourceTypeTelegram
}

// Fetch pulls up to limit recent messages for the peer, newest window first
// as the gateway returns them.
func (s *Strategy) Fetch(ctx context.Context, peer string, limit int) ([]domain.RawMessage, error) {
	if peer == "" {
		return nil, fmt.Errorf("peer is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	resp, err := s.fetchWithRetry(ctx, fetchRequest{
		Peer:     peer,
		Limit:    limit,
		OffsetID: 0,
	})
	if err != nil {
		return nil, err
	}

	messages := make([]domain.RawMessage, 0, len(resp.Messages))
	for _, raw := range resp.Messages {
		var env messageEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.logger.Warn("skipping malformed gateway message", "error", err)
			continue
		}
		messages = append(messages, domain.RawMessage{
			ID:   env.ID,
			Body: env.Message,
			Date: env.Date,
			Raw:  raw,
		})
	}

	s.logger.Debug("fetched messages", "peer", peer, "count", len(messages))

	return messages, nil
}

func (s *Strategy) fetchWithRetry(ctx context.Context, req fetchRequest) (*fetchResponse, error) {
	var resp *fetchResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx, req)
		if err == nil {
			return resp, nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("gateway request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Strategy) doRequest(ctx context.Context, freq fetchRequest) (*fetchResponse, error) {
	body, err := json.Marshal(freq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := s.baseURL + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var fresp fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&fresp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &fresp, nil
}

func (s *Strategy) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}
