package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"practice-governance/internal/domain"
)

// AuditLog keeps audit entries in process memory. Appends are serialized and
// timestamps are clamped so the log is strictly increasing in time as well as
// in insertion order.
type AuditLog struct {
	mu      sync.RWMutex
	entries []domain.AuditLogEntry
	last    time.Time
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (l *AuditLog) Append(_ context.Context, entry domain.AuditLogEntry) error {
	if entry.DocumentID == "" || entry.ActorID == "" || entry.Action == "" {
		return domain.ErrInvalidInput
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !entry.Timestamp.After(l.last) {
		entry.Timestamp = l.last.Add(time.Nanosecond)
	}
	l.last = entry.Timestamp
	l.entries = append(l.entries, entry)
	return nil
}

func (l *AuditLog) List(context.Context) ([]domain.AuditLogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries), nil
}

func (l *AuditLog) ListByDocument(_ context.Context, docID string) ([]domain.AuditLogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []domain.AuditLogEntry{}
	for _, e := range l.entries {
		if e.DocumentID == docID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *AuditLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
