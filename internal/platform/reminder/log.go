package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SentLog records which reminders have been delivered, keyed by medication,
// slot and calendar day, so overlapping sweeps and process restarts never
// double-send.
type SentLog interface {
	// MarkSent records a delivery and reports whether the key was new.
	// A false return means the reminder was already sent.
	MarkSent(ctx context.Context, medicationID uuid.UUID, slotID int, day string, at time.Time) (bool, error)

	// Unmark releases a key so a failed delivery can be retried.
	Unmark(ctx context.Context, medicationID uuid.UUID, slotID int, day string) error

	// Prune drops entries sent before the cutoff.
	Prune(ctx context.Context, before time.Time) error
}

// MemoryLog is a map-backed SentLog for single-process setups and tests.
type MemoryLog struct {
	mu   sync.Mutex
	sent map[string]time.Time
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{sent: make(map[string]time.Time)}
}

func sentKey(medicationID uuid.UUID, slotID int, day string) string {
	return fmt.Sprintf("%s|%d|%s", medicationID, slotID, day)
}

func (l *MemoryLog) MarkSent(_ context.Context, medicationID uuid.UUID, slotID int, day string, at time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := sentKey(medicationID, slotID, day)
	if _, ok := l.sent[key]; ok {
		return false, nil
	}
	l.sent[key] = at
	return true, nil
}

func (l *MemoryLog) Unmark(_ context.Context, medicationID uuid.UUID, slotID int, day string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sent, sentKey(medicationID, slotID, day))
	return nil
}

func (l *MemoryLog) Prune(_ context.Context, before time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, t := range l.sent {
		if t.Before(before) {
			delete(l.sent, k)
		}
	}
	return nil
}
