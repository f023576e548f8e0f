package ports

import (
	"context"

	"practice-governance/internal/domain"
)

// DocumentRepository stores document snapshots. Every write carries the audit
// entry describing it; the snapshot and the entry are stored together or not
// at all.
type DocumentRepository interface {
	// Create stores a new document with its creation entry and returns
	// domain.ErrConflict if the id is taken.
	Create(ctx context.Context, doc domain.Document, entry domain.AuditLogEntry) error
	GetByID(ctx context.Context, docID string) (domain.Document, error)
	// Save stores doc and entry if the stored version equals expectedVersion
	// and returns domain.ErrConflict otherwise.
	Save(ctx context.Context, doc domain.Document, expectedVersion int, entry domain.AuditLogEntry) error
}

// AuditLog is an append-only record of executed workflow actions. List returns
// entries in insertion order.
type AuditLog interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	List(ctx context.Context) ([]domain.AuditLogEntry, error)
	ListByDocument(ctx context.Context, docID string) ([]domain.AuditLogEntry, error)
}
