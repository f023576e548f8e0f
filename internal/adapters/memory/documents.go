package memory

import (
	"context"
	"sync"

	"practice-governance/internal/domain"
	"practice-governance/internal/ports"
)

// DocumentRepository stores document snapshots by id with version-checked
// writes. Each write appends its audit entry inside the same critical section,
// and the snapshot is only stored once the append has succeeded.
type DocumentRepository struct {
	mu    sync.Mutex
	docs  map[string]domain.Document
	audit ports.AuditLog
}

func NewDocumentRepository(audit ports.AuditLog) *DocumentRepository {
	return &DocumentRepository{docs: map[string]domain.Document{}, audit: audit}
}

func (r *DocumentRepository) Create(ctx context.Context, doc domain.Document, entry domain.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; ok {
		return domain.ErrConflict
	}
	if err := r.audit.Append(ctx, entry); err != nil {
		return err
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *DocumentRepository) GetByID(_ context.Context, docID string) (domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return doc, nil
}

func (r *DocumentRepository) Save(ctx context.Context, doc domain.Document, expectedVersion int, entry domain.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.docs[doc.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Version != expectedVersion {
		return domain.ErrConflict
	}
	if err := r.audit.Append(ctx, entry); err != nil {
		return err
	}
	r.docs[doc.ID] = doc
	return nil
}
