package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleGlobalAdmin       Role = "GLOBAL_ADMIN"
	RoleTenantAdmin       Role = "TENANT_ADMIN"
	RolePartner           Role = "PARTNER"
	RoleSeniorCounsel     Role = "SENIOR_COUNSEL"
	RoleJuniorAssociate   Role = "JUNIOR_ASSOCIATE"
	RoleExternalCounsel   Role = "EXTERNAL_COUNSEL"
	RoleLegalOpsManager   Role = "LEGAL_OPS_MANAGER"
	RoleComplianceOfficer Role = "COMPLIANCE_OFFICER"
	RoleFinanceBilling    Role = "FINANCE_BILLING"
	RoleClient            Role = "CLIENT"
	RoleExecutiveBoard    Role = "EXECUTIVE_BOARD"
)

// Roles lists every canonical role.
var Roles = []Role{
	RoleGlobalAdmin,
	RoleTenantAdmin,
	RolePartner,
	RoleSeniorCounsel,
	RoleJuniorAssociate,
	RoleExternalCounsel,
	RoleLegalOpsManager,
	RoleComplianceOfficer,
	RoleFinanceBilling,
	RoleClient,
	RoleExecutiveBoard,
}

// Deprecated role names accepted at the boundary and the canonical role they
// resolve to.
var roleAliases = map[string]Role{
	"INTERNAL_COUNSEL": RoleSeniorCounsel,
}

// ParseRole resolves a role name, including deprecated aliases, to its
// canonical Role. Matching is case-insensitive.
func ParseRole(raw string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if alias, ok := roleAliases[name]; ok {
		return alias, nil
	}
	for _, r := range Roles {
		if string(r) == name {
			return r, nil
		}
	}
	return "", ErrInvalidInput
}

type Permission string

const (
	PermCreateDraft     Permission = "create_draft"
	PermEditDraft       Permission = "edit_draft"
	PermSubmitReview    Permission = "submit_review"
	PermApproveDocument Permission = "approve_document"
	PermExportFinal     Permission = "export_final"
	PermManagePlatform  Permission = "manage_platform"
	PermManageTenant    Permission = "manage_tenant"
	PermManageUsers     Permission = "manage_users"
	PermViewVault       Permission = "view_vault"
	PermViewAudit       Permission = "view_audit"
	PermViewMatters     Permission = "view_matters"
	PermManageBilling   Permission = "manage_billing"
	PermViewReports     Permission = "view_reports"
)

// PermissionSet is an unordered set of permissions.
type PermissionSet map[Permission]struct{}

func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAny reports whether the set holds at least one of perms.
func (s PermissionSet) HasAny(perms []Permission) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

type Surface string

const (
	SurfaceDashboard   Surface = "dashboard"
	SurfacePlatformOps Surface = "platform-ops"
	SurfaceTenantAdmin Surface = "tenant-admin"
	SurfaceVault       Surface = "vault"
	SurfaceAudit       Surface = "audit"
	SurfaceMatters     Surface = "matters"
	SurfaceDrafting    Surface = "drafting"
	SurfaceApprovals   Surface = "approvals"
	SurfaceBilling     Surface = "billing"
	SurfaceReports     Surface = "reports"
	SurfaceSettings    Surface = "settings"
)

// ApprovalStatus is the position of a document in the approval lifecycle. The
// zero value means the document has no status yet.
type ApprovalStatus string

const (
	StatusNone     ApprovalStatus = ""
	StatusDraft    ApprovalStatus = "DRAFT"
	StatusReview   ApprovalStatus = "REVIEW"
	StatusApproved ApprovalStatus = "APPROVED"
)

// WorkflowAction names a document transition. Each action is gated by the
// permission of the same name.
type WorkflowAction string

const (
	ActionCreateDraft     WorkflowAction = "create_draft"
	ActionEditDraft       WorkflowAction = "edit_draft"
	ActionSubmitReview    WorkflowAction = "submit_review"
	ActionApproveDocument WorkflowAction = "approve_document"
	ActionExportFinal     WorkflowAction = "export_final"
)

var WorkflowActions = []WorkflowAction{
	ActionCreateDraft,
	ActionEditDraft,
	ActionSubmitReview,
	ActionApproveDocument,
	ActionExportFinal,
}

func ParseAction(raw string) (WorkflowAction, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range WorkflowActions {
		if string(a) == name {
			return a, nil
		}
	}
	return "", ErrInvalidInput
}

// Permission returns the permission required to perform the action.
func (a WorkflowAction) Permission() Permission {
	return Permission(a)
}

// Actor is the identity performing a request, as supplied by the session.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

type Document struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Classification string         `json:"classification,omitempty"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	CreatorID      string         `json:"creator_id"`
	Version        int            `json:"version"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

const (
	OutcomeProceeded = "PROCEEDED"
	RuleConfidence   = 1.0
)

// AuditLogEntry records one executed workflow action. Entries are never
// modified after they are appended.
type AuditLogEntry struct {
	ID              string         `json:"id"`
	DocumentID      string         `json:"document_id"`
	Timestamp       time.Time      `json:"timestamp"`
	ActorID         string         `json:"actor_id"`
	Role            Role           `json:"role"`
	Action          WorkflowAction `json:"action"`
	ResultingStatus ApprovalStatus `json:"resulting_status"`
	ApprovalToken   string         `json:"approval_token,omitempty"`
	Confidence      float64        `json:"confidence"`
	Outcome         string         `json:"outcome"`
}

type TransitionResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}
