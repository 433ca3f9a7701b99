package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Operation is the kind of deferred write held in the pending queue.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// TempIDPrefix marks a locally assigned identifier that has no remote
// counterpart yet.
const TempIDPrefix = "temp_"

// NewDocumentID generates a remote-compatible document identifier.
func NewDocumentID() string {
	return uuid.NewString()
}

// NewTempID generates a temporary identifier for a document created while
// the authoritative store is unreachable.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was assigned offline and must be replaced
// with a real identifier at sync time.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// PendingWrite is one deferred mutation against the authoritative store.
// Entries are replayed oldest first by the sync driver and removed or
// flagged synced only after the remote write is confirmed.
type PendingWrite struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	DocumentID string         `json:"documentId"`
	Operation  Operation      `json:"operation"`
	Payload    map[string]any `json:"payload,omitempty"`
	Synced     bool           `json:"synced"`
	Attempts   int            `json:"attempts"`
	LastError  string         `json:"lastError,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// NewPendingWrite queues a deferred mutation for later replay.
func NewPendingWrite(collection string, op Operation, documentID string, payload map[string]any) *PendingWrite {
	now := time.Now().UTC()
	return &PendingWrite{
		ID:         uuid.NewString(),
		Collection: collection,
		DocumentID: documentID,
		Operation:  op,
		Payload:    payload,
		Synced:     false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// SortPendingWritesOldestFirst orders queue entries by creation time so
// replay preserves the original write order.
func SortPendingWritesOldestFirst(writes []*PendingWrite) {
	sort.SliceStable(writes, func(i, j int) bool {
		return writes[i].CreatedAt.Before(writes[j].CreatedAt)
	})
}
