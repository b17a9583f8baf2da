package telegram

import "encoding/json"

// Wire types for the message-gateway API. The gateway wraps the actual
// Telegram client; this service only ever sees its JSON surface.

type fetchRequest struct {
	Peer     string `json:"peer"`
	Limit    int    `json:"limit"`
	OffsetID int64  `json:"offset_id"`
}

// Messages stay raw so the full upstream payload can be snapshotted into the
// content row; the envelope pulls out only the fields the pipeline needs.
type fetchResponse struct {
	Messages []json.RawMessage `json:"messages"`
}

type messageEnvelope struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
	Date    int64  `json:"date"`
}
