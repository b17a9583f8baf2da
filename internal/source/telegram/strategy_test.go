package telegram

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"content_syncer/internal/domain"
)

type StrategyTestSuite struct {
	suite.Suite
	logger *slog.Logger
}

func (s *StrategyTestSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStrategyTestSuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func (s *StrategyTestSuite) newStrategy(baseURL string) *Strategy {
	return New(Config{
		BaseURL:        baseURL,
		Timeout:        5 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, s.logger)
}

func (s *StrategyTestSuite) TestFetch_ParsesMessages() {
	var gotReq fetchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("/messages", r.URL.Path)
		s.NoError(json.NewDecoder(r.Body).Decode(&gotReq))

		_, _ = w.Write([]byte(`{"messages": [
			{"id": 101, "message": "first", "date": 1700000000, "views": 5},
			{"id": 102, "message": "second", "date": 1700000100}
		]}`))
	}))
	defer server.Close()

	strategy := s.newStrategy(server.URL)

	messages, err := strategy.Fetch(context.Background(), "channelname", 10)
	s.NoError(err)
	s.Len(messages, 2)

	s.Equal("channelname", gotReq.Peer)
	s.Equal(10, gotReq.Limit)
	s.Equal(int64(0), gotReq.OffsetID)

	s.Equal(int64(101), messages[0].ID)
	s.Equal("first", messages[0].Body)
	s.Equal(int64(1700000000), messages[0].Date)
	// the raw payload keeps fields the envelope does not model
	s.Contains(string(messages[0].Raw), `"views": 5`)
}

func (s *StrategyTestSuite) TestFetch_DefaultLimit() {
	var gotReq fetchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.NoError(json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"messages": []}`))
	}))
	defer server.Close()

	strategy := s.newStrategy(server.URL)

	messages, err := strategy.Fetch(context.Background(), "channelname", 0)
	s.NoError(err)
	s.Empty(messages)
	s.Equal(DefaultLimit, gotReq.Limit)
}

func (s *StrategyTestSuite) TestFetch_EmptyPeer() {
	strategy := s.newStrategy("http://unused")

	_, err := strategy.Fetch(context.Background(), "", 10)
	s.Error(err)
	s.Contains(err.Error(), "peer is required")
}

func (s *StrategyTestSuite) TestFetch_RetriesOnServerError() {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"messages": [{"id": 1, "message": "ok", "date": 1}]}`))
	}))
	defer server.Close()

	strategy := s.newStrategy(server.URL)

	messages, err := strategy.Fetch(context.Background(), "channelname", 5)
	s.NoError(err)
	s.Len(messages, 1)
	s.Equal(int32(3), calls.Load())
}

func (s *StrategyTestSuite) TestFetch_ExhaustsRetries() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	strategy := s.newStrategy(server.URL)

	_, err := strategy.Fetch(context.Background(), "channelname", 5)
	s.Error(err)
	s.Contains(err.Error(), "after 3 attempts")
	s.Contains(err.Error(), "unexpected status: 502")
}

func (s *StrategyTestSuite) TestFetch_SkipsMalformedMessages() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages": [
			{"id": "not-a-number", "message": "bad"},
			{"id": 2, "message": "good", "date": 1}
		]}`))
	}))
	defer server.Close()

	strategy := s.newStrategy(server.URL)

	messages, err := strategy.Fetch(context.Background(), "channelname", 5)
	s.NoError(err)
	s.Len(messages, 1)
	s.Equal(int64(2), messages[0].ID)
}

func (s *StrategyTestSuite) TestType() {
	strategy := s.newStrategy("http://unused")
	s.Equal(domain.SourceTypeTelegram, strategy.Type())
}

func (s *StrategyTestSuite) TestCalculateBackoff() {
	strategy := New(Config{
		InitialBackoff: time.Second,
		MaxBackoff:     5 * time.Second,
	}, s.logger)

	s.Equal(time.Second, strategy.calculateBackoff(1))
	s.Equal(2*time.Second, strategy.calculateBackoff(2))
	s.Equal(4*time.Second, strategy.calculateBackoff(3))
	s.Equal(5*time.Second, strategy.calculateBackoff(4))
}
