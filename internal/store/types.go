package store

import (
	"encoding/json"
	"time"
)

// Transaction is a cached transaction: the already-produced flat operation
// list and the diagnostic trace lines of its execution, as delivered by the
// ingestion collaborator. Layout and playback state are never persisted.
type Transaction struct {
	ID         string          `json:"id"`
	Hash       string          `json:"hash"`
	Network    string          `json:"network,omitempty"`
	Operations json.RawMessage `json:"operations"`
	TraceLines []string        `json:"trace_lines,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	FetchedAt  time.Time       `json:"fetched_at"`
}

// TransactionFilter narrows ListTransactions results.
type TransactionFilter struct {
	Network string
	Before  *time.Time
	Limit   int
}
