package domain

import (
	"fmt"
	"time"

	"practice-governance/internal/platform/ids"
)

// Workflow validates and applies document approval transitions. It holds no
// document state of its own; every call takes the caller's current snapshot and
// returns a new one.
type Workflow struct {
	Registry *Registry
	// Now stamps updated documents and audit entries. Defaults to time.Now.
	Now func() time.Time
	// NewToken generates approval tokens. Defaults to ids.NewApprovalToken.
	NewToken func() string
	// NewID generates audit entry identifiers. Defaults to ids.New.
	NewID func() string
}

// ValidateTransition reports whether actor may apply action to doc, with the
// reason when it may not. It never mutates doc.
func (w *Workflow) ValidateTransition(doc Document, action WorkflowAction, actor Actor) TransitionResult {
	if err := w.Validate(doc, action, actor); err != nil {
		return TransitionResult{Allowed: false, Reason: err.Error()}
	}
	return TransitionResult{Allowed: true}
}

// Validate runs the permission, state and separation-of-duties checks in that
// order and returns the first failure as an *UnauthorizedError,
// *InvalidTransitionError or *SeparationOfDutiesError.
func (w *Workflow) Validate(doc Document, action WorkflowAction, actor Actor) error {
	if !CanPerformAction(w.Registry, actor.Role, action) {
		return &UnauthorizedError{Role: actor.Role, Action: action}
	}
	if reason := stateViolation(doc.ApprovalStatus, action); reason != "" {
		return &InvalidTransitionError{From: doc.ApprovalStatus, Action: action, Reason: reason}
	}
	if action == ActionApproveDocument {
		if doc.CreatorID == "" {
			return &SeparationOfDutiesError{ActorID: actor.ID, DocumentID: doc.ID, UnknownCreator: true}
		}
		if doc.CreatorID == actor.ID {
			return &SeparationOfDutiesError{ActorID: actor.ID, DocumentID: doc.ID}
		}
	}
	return nil
}

func stateViolation(status ApprovalStatus, action WorkflowAction) string {
	switch action {
	case ActionCreateDraft:
		return ""
	case ActionEditDraft:
		switch status {
		case StatusReview:
			return "Cannot edit document while in REVIEW"
		case StatusApproved:
			return "Cannot edit an APPROVED document"
		case StatusDraft, StatusNone:
			return ""
		}
	case ActionSubmitReview:
		if status == StatusDraft {
			return ""
		}
		return "Only DRAFT documents can be submitted for review."
	case ActionApproveDocument:
		if status == StatusReview {
			return ""
		}
		return "Only documents in REVIEW can be approved."
	case ActionExportFinal:
		if status == StatusApproved {
			return ""
		}
		return "Only APPROVED documents can be exported."
	}
	return fmt.Sprintf("Action %s is not valid from status %q", action, status)
}

// ExecuteAction validates the transition and, when allowed, returns the updated
// document together with the audit entry describing it. The input document is
// left untouched; callers replace their reference with the returned value.
func (w *Workflow) ExecuteAction(doc Document, action WorkflowAction, actor Actor) (Document, AuditLogEntry, error) {
	if err := w.Validate(doc, action, actor); err != nil {
		return Document{}, AuditLogEntry{}, err
	}
	now := w.now()
	next := doc
	switch action {
	case ActionCreateDraft:
		next.ApprovalStatus = StatusDraft
		next.CreatorID = actor.ID
	case ActionEditDraft:
		next.ApprovalStatus = StatusDraft
		if next.CreatorID == "" {
			next.CreatorID = actor.ID
		}
	case ActionSubmitReview:
		next.ApprovalStatus = StatusReview
	case ActionApproveDocument:
		next.ApprovalStatus = StatusApproved
	case ActionExportFinal:
	}
	next.Version = doc.Version + 1
	next.UpdatedAt = now

	entry := AuditLogEntry{
		DocumentID:      doc.ID,
		Timestamp:       now,
		ActorID:         actor.ID,
		Role:            actor.Role,
		Action:          action,
		ResultingStatus: next.ApprovalStatus,
		Confidence:      RuleConfidence,
		Outcome:         OutcomeProceeded,
		ID:              w.newID(),
	}
	if action == ActionApproveDocument {
		entry.ApprovalToken = w.newToken()
	}
	return next, entry, nil
}

func (w *Workflow) newID() string {
	if w.NewID != nil {
		return w.NewID()
	}
	return ids.New()
}

func (w *Workflow) newToken() string {
	if w.NewToken != nil {
		return w.NewToken()
	}
	return ids.NewApprovalToken()
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}
