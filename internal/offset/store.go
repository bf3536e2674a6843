// Package offset persists, per source-destination pair, the identifier of
// the last source message that was fully forwarded. Offsets are the only
// durable state the daemon owns; they must survive restarts and never move
// backwards.
package offset

import (
	"context"
	"time"

	"github.com/mirrorgram/mirrorgram/pkg/message"
)

// Entry is one pair's persisted position, as reported by All.
type Entry struct {
	Pair      string    `json:"pair"`
	MessageID int64     `json:"message_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the offset persistence contract. Commit must be durable before
// the next fetch for the pair begins; a failed Commit is fatal for that
// pair's cycle so duplicate delivery stays bounded to the last uncommitted
// batch.
type Store interface {
	// Load returns the last committed id for the pair. ok is false when the
	// pair has never been committed.
	Load(ctx context.Context, pair message.Pair) (id int64, ok bool, err error)

	// Commit durably records id as the pair's position. Committing an id at
	// or below the current position is a no-op, which keeps offsets
	// monotonically non-decreasing.
	Commit(ctx context.Context, pair message.Pair, id int64) error

	// All lists every persisted pair position, for status reporting.
	All(ctx context.Context) ([]Entry, error)

	Close() error
}

// Checkpointer is implemented by stores that maintain sidecar journal files
// needing periodic compaction.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}
