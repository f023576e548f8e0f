package application

import (
	"context"
	"errors"
	"strings"

	"practice-governance/internal/domain"
	"practice-governance/internal/platform/ids"
	"practice-governance/internal/ports"
)

const (
	outcomeProceeded = "proceeded"
	outcomeDenied    = "denied"
)

type AccessService struct {
	registry *domain.Registry
	logger   ports.Logger
	metrics  ports.Recorder
}

func NewAccessService(registry *domain.Registry, logger ports.Logger, metrics ports.Recorder) *AccessService {
	if metrics == nil {
		metrics = ports.NopRecorder{}
	}
	return &AccessService{registry: registry, logger: logger, metrics: metrics}
}

func (s *AccessService) CanAccessSurface(ctx context.Context, role domain.Role, surface domain.Surface) bool {
	allowed := domain.CanAccessSurface(s.registry, role, surface)
	s.metrics.ObserveAccess("surface", allowed)
	if !allowed {
		s.logger.Debug(ctx, "surface access denied", "role", role, "surface", surface)
	}
	return allowed
}

func (s *AccessService) CanPerformAction(ctx context.Context, role domain.Role, action domain.WorkflowAction) bool {
	allowed := domain.CanPerformAction(s.registry, role, action)
	s.metrics.ObserveAccess("action", allowed)
	if !allowed {
		s.logger.Debug(ctx, "action denied", "role", role, "action", action)
	}
	return allowed
}

// CanViewDocuments reports whether role may read workflow documents: anyone
// who can reach the drafting or approvals surface, or who may export finals.
func (s *AccessService) CanViewDocuments(ctx context.Context, role domain.Role) bool {
	allowed := domain.CanAccessSurface(s.registry, role, domain.SurfaceDrafting) ||
		domain.CanAccessSurface(s.registry, role, domain.SurfaceApprovals) ||
		domain.CanPerformAction(s.registry, role, domain.ActionExportFinal)
	s.metrics.ObserveAccess("document", allowed)
	if !allowed {
		s.logger.Debug(ctx, "document read denied", "role", role)
	}
	return allowed
}

// VisibleSurfaces lists, in name order, the registry surfaces role may view.
func (s *AccessService) VisibleSurfaces(role domain.Role) []domain.Surface {
	visible := []domain.Surface{}
	for _, surface := range s.registry.Surfaces() {
		if domain.CanAccessSurface(s.registry, role, surface) {
			visible = append(visible, surface)
		}
	}
	return visible
}

type WorkflowService struct {
	workflow *domain.Workflow
	docs     ports.DocumentRepository
	audit    ports.AuditLog
	logger   ports.Logger
	metrics  ports.Recorder
}

func NewWorkflowService(workflow *domain.Workflow, docs ports.DocumentRepository, audit ports.AuditLog, logger ports.Logger, metrics ports.Recorder) *WorkflowService {
	if metrics == nil {
		metrics = ports.NopRecorder{}
	}
	return &WorkflowService{workflow: workflow, docs: docs, audit: audit, logger: logger, metrics: metrics}
}

// NewWorkflow builds the state machine with production identifier and token
// generators.
func NewWorkflow(registry *domain.Registry) *domain.Workflow {
	return &domain.Workflow{
		Registry: registry,
		NewToken: ids.NewApprovalToken,
		NewID:    ids.New,
	}
}

func (s *WorkflowService) ValidateTransition(doc domain.Document, action domain.WorkflowAction, actor domain.Actor) domain.TransitionResult {
	return s.workflow.ValidateTransition(doc, action, actor)
}

// ExecuteAction applies action to the caller-held snapshot doc and appends one
// audit entry. The caller is responsible for serializing calls against the same
// document and for replacing its reference with the returned value.
func (s *WorkflowService) ExecuteAction(ctx context.Context, doc domain.Document, action domain.WorkflowAction, actor domain.Actor) (domain.Document, error) {
	if actor.ID == "" {
		return domain.Document{}, domain.ErrInvalidInput
	}
	next, entry, err := s.workflow.ExecuteAction(doc, action, actor)
	if err != nil {
		return domain.Document{}, s.denied(ctx, doc, action, actor, err)
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error(ctx, "audit append failed", "document_id", next.ID, "action", entry.Action, "error", err)
		return domain.Document{}, err
	}
	s.observe(ctx, next, entry)
	return next, nil
}

// CreateDocument starts a new document in DRAFT authored by actor.
func (s *WorkflowService) CreateDocument(ctx context.Context, actor domain.Actor, title, classification string) (domain.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" || actor.ID == "" {
		return domain.Document{}, domain.ErrInvalidInput
	}
	seed := domain.Document{
		ID:             ids.New(),
		Title:          title,
		Classification: strings.ToUpper(strings.TrimSpace(classification)),
	}
	next, entry, err := s.workflow.ExecuteAction(seed, domain.ActionCreateDraft, actor)
	if err != nil {
		return domain.Document{}, s.denied(ctx, seed, domain.ActionCreateDraft, actor, err)
	}
	if err := s.docs.Create(ctx, next, entry); err != nil {
		s.logger.Error(ctx, "document create failed", "document_id", next.ID, "error", err)
		return domain.Document{}, err
	}
	s.observe(ctx, next, entry)
	return next, nil
}

// Execute loads the stored document, applies action and persists the result
// together with its audit entry under an optimistic version check. A concurrent
// writer or a failed audit write leaves the stored document unchanged.
func (s *WorkflowService) Execute(ctx context.Context, docID string, action domain.WorkflowAction, actor domain.Actor) (domain.Document, error) {
	if docID == "" || actor.ID == "" {
		return domain.Document{}, domain.ErrInvalidInput
	}
	current, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return domain.Document{}, err
	}
	next, entry, err := s.workflow.ExecuteAction(current, action, actor)
	if err != nil {
		return domain.Document{}, s.denied(ctx, current, action, actor, err)
	}
	if err := s.docs.Save(ctx, next, current.Version, entry); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Warn(ctx, "document modified concurrently", "document_id", docID, "action", action)
		} else {
			s.logger.Error(ctx, "document save failed", "document_id", docID, "action", action, "error", err)
		}
		return domain.Document{}, err
	}
	s.observe(ctx, next, entry)
	return next, nil
}

// denied logs and counts a rejected action. Rejections are not audit entries.
func (s *WorkflowService) denied(ctx context.Context, doc domain.Document, action domain.WorkflowAction, actor domain.Actor, err error) error {
	s.metrics.ObserveAction(string(action), outcomeDenied)
	s.logger.Warn(ctx, "workflow action denied",
		"document_id", doc.ID,
		"actor_id", actor.ID,
		"role", actor.Role,
		"action", action,
		"status", doc.ApprovalStatus,
		"reason", err.Error(),
	)
	return err
}

// observe logs and counts a transition whose audit entry has been stored.
func (s *WorkflowService) observe(ctx context.Context, next domain.Document, entry domain.AuditLogEntry) {
	s.metrics.ObserveAction(string(entry.Action), outcomeProceeded)
	s.logger.Info(ctx, "workflow action executed",
		"document_id", next.ID,
		"actor_id", entry.ActorID,
		"action", entry.Action,
		"status", next.ApprovalStatus,
	)
}

func (s *WorkflowService) Get(ctx context.Context, docID string) (domain.Document, error) {
	if docID == "" {
		return domain.Document{}, domain.ErrInvalidInput
	}
	return s.docs.GetByID(ctx, docID)
}

func (s *WorkflowService) AuditLog(ctx context.Context) ([]domain.AuditLogEntry, error) {
	return s.audit.List(ctx)
}

func (s *WorkflowService) DocumentHistory(ctx context.Context, docID string) ([]domain.AuditLogEntry, error) {
	if docID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.audit.ListByDocument(ctx, docID)
}
