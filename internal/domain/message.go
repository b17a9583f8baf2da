package domain

import "encoding/json"

// RawMessage is one upstream message as returned by a fetch adapter. It is
// never persisted as-is and lives only for the duration of one sync run.
type RawMessage struct {
	ID   int64
	Body string
	Date int64 // unix seconds, 0 when upstream omits it
	Raw  json.RawMessage
}
