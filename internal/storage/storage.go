package storage

import (
	"context"

	"lendingScope/internal/model"
)

// CheckpointKey is the state key holding the last fully ingested block.
const CheckpointKey = "lastProcessedBlock"

// EventFilter narrows event queries. Zero-valued fields are ignored.
type EventFilter struct {
	Contract  string
	EventName string
	FromBlock *uint64
	ToBlock   *uint64
}

// Store is the durable state consumed by the synchronizer and the API:
// a key-value table for sync state and an append-only event log unique
// on (txHash, logIndex).
type Store interface {
	// GetState returns the value for a key, reporting absence without error.
	GetState(ctx context.Context, key string) (string, bool, error)

	// SetState upserts a key-value pair.
	SetState(ctx context.Context, key, value string) error

	// InsertEvent stores an event with insert-if-absent semantics on
	// (TxHash, LogIndex); replaying a known log is a no-op.
	InsertEvent(ctx context.Context, event model.Event) error

	// QueryEvents returns at most limit events matching the filter,
	// ordered by (blockNumber, logIndex) ascending.
	QueryEvents(ctx context.Context, filter EventFilter, limit int) ([]model.Event, error)

	// EventStats returns per-(contract, event) counts for the filter,
	// ordered by count descending.
	EventStats(ctx context.Context, filter EventFilter) ([]model.EventStat, error)

	Close()
}
