package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContentStatus tracks how far a content record has progressed through
// enrichment.
type ContentStatus string

const (
	ContentStatusPending          ContentStatus = "pending"
	ContentStatusReady            ContentStatus = "ready"
	ContentStatusEnrichmentFailed ContentStatus = "enrichment_failed"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentUnknown  Sentiment = "unknown"
)

type FactCheckVerdict string

const (
	VerdictVerified      FactCheckVerdict = "verified"
	VerdictPartiallyTrue FactCheckVerdict = "partially_true"
	VerdictFalse         FactCheckVerdict = "false"
	VerdictUnverified    FactCheckVerdict = "unverified"
	VerdictOpinion       FactCheckVerdict = "opinion"
)

// Content is one ingested, durably stored unit derived from an upstream
// message. The pair (SourceID, ExternalID) is unique.
type Content struct {
	ID             string
	SourceID       string
	ExternalID     string
	Text           string
	RawData        json.RawMessage
	Status         ContentStatus
	IsVectorized   bool
	EmbeddingModel *string
	VectorID       *string
	AiAnalysis     *AiAnalysisResult
	SourceDate     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AiAnalysisResult is the structured output of text analysis, attached to
// content once enrichment completes.
type AiAnalysisResult struct {
	Summary   string             `json:"summary"`
	Sentiment Sentiment          `json:"sentiment"`
	Keywords  []string           `json:"keywords"`
	Entities  *ExtractedEntities `json:"entities,omitempty"`
	Category  string             `json:"category,omitempty"`
	Language  string             `json:"language,omitempty"`
	FactCheck *FactCheck         `json:"factCheck,omitempty"`
}

type ExtractedEntities struct {
	Organizations []string `json:"organizations,omitempty"`
	People        []string `json:"people,omitempty"`
	Tickers       []string `json:"tickers,omitempty"`
	Locations     []string `json:"locations,omitempty"`
}

// FactCheck carries a verdict with a confidence score in [0,1] and the URLs
// supporting it.
type FactCheck struct {
	Verdict     FactCheckVerdict `json:"verdict"`
	Score       float64          `json:"score"`
	Explanation string           `json:"explanation,omitempty"`
	Sources     []string         `json:"sources,omitempty"`
}

// EmbeddingResult is a fixed-dimension vector plus the model that produced it.
// It is persisted only inside the vector index.
type EmbeddingResult struct {
	Vector     []float32
	Model      string
	Dimensions int
}

// ContentUpdate names the fields a content update may touch; nil fields are
// left unchanged.
type ContentUpdate struct {
	Status         *ContentStatus
	IsVectorized   *bool
	EmbeddingModel *string
	VectorID       *string
	AiAnalysis     *AiAnalysisResult
}

// VectorPayload is the metadata stored alongside a vector in the index.
type VectorPayload struct {
	Summary  string
	Category string
	Language string
}

// ExternalContentID derives the deterministic per-source content key. Dedup
// across sync runs depends on this exact format.
func ExternalContentID(sourceExternalID string, messageID int64) string {
	return fmt.Sprintf("%s:%d", sourceExternalID, messageID)
}
