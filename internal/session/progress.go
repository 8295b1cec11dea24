package session

import (
	"sync"

	"github.com/nlq-workbench/client/internal/protocol"
)

// ProgressSnapshot is the single live progress projection for the turn
// in flight. Fraction is passed through as received from the backend;
// the expected display range is [0,1].
type ProgressSnapshot struct {
	Stage    string
	Message  string
	Fraction float64
}

// ProgressTracker derives the current progress projection from the
// inbound event stream. Each progress frame replaces the snapshot
// wholesale (most-recent-wins, no merging of partial updates); any
// terminal frame clears it.
type ProgressTracker struct {
	mu       sync.RWMutex
	snapshot *ProgressSnapshot

	onStarted func(conversationID string)
}

// NewProgressTracker creates an empty tracker. onStarted is invoked with
// the server-issued conversation id when a turn opens; it may be nil.
func NewProgressTracker(onStarted func(conversationID string)) *ProgressTracker {
	return &ProgressTracker{onStarted: onStarted}
}

// Apply records a progress frame as the current snapshot.
func (t *ProgressTracker) Apply(payload *protocol.ProgressPayload) {
	if payload.Stage == protocol.StageStarted && payload.ConversationID != "" && t.onStarted != nil {
		t.onStarted(payload.ConversationID)
	}

	t.mu.Lock()
	t.snapshot = &ProgressSnapshot{
		Stage:    payload.Stage,
		Message:  payload.Message,
		Fraction: payload.Progress,
	}
	t.mu.Unlock()
}

// Clear drops the live snapshot. Called on any terminal message and on
// an explicit new-conversation request.
func (t *ProgressTracker) Clear() {
	t.mu.Lock()
	t.snapshot = nil
	t.mu.Unlock()
}

// Snapshot returns a copy of the live snapshot, or nil when no turn is
// in flight.
func (t *ProgressTracker) Snapshot() *ProgressSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.snapshot == nil {
		return nil
	}
	copied := *t.snapshot
	return &copied
}
