package domain

import "time"

// SourceType identifies the upstream system a source belongs to.
type SourceType string

const (
	SourceTypeTelegram  SourceType = "telegram"
	SourceTypeTwitter   SourceType = "twitter"
	SourceTypeRSS       SourceType = "rss"
	SourceTypeYouTube   SourceType = "youtube"
	SourceTypeInstagram SourceType = "instagram"
)

// SourceMetadata holds the source-type-specific settings operators attach to
// a source. Only the keys the pipeline actually reads are modeled; everything
// else stays in the stored JSON untouched.
type SourceMetadata struct {
	Username string `json:"username,omitempty"`
}

// Source is an upstream content origin (e.g., a Telegram channel) registered
// in the system.
type Source struct {
	ID         string
	Type       SourceType
	ExternalID string
	Name       *string
	Active     bool
	Metadata   SourceMetadata
	LastSyncAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Peer returns the identifier used to address the upstream channel on fetch.
// A metadata username survives channel-id churn, so it wins over ExternalID.
func (s *Source) Peer() string {
	if s.Metadata.Username != "" {
		return s.Metadata.Username
	}
	return s.ExternalID
}

// DisplayName returns the operator-facing name, falling back to ExternalID.
func (s *Source) DisplayName() string {
	if s.Name != nil && *s.Name != "" {
		return *s.Name
	}
	return s.ExternalID
}
