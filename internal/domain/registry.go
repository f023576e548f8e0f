package domain

import (
	"slices"
	"sort"
)

// Registry maps roles to the permissions they hold and surfaces to the
// permissions that unlock them. It is immutable once built and safe for
// concurrent reads.
//
// A surface with no required permissions is public to every authenticated
// role; that includes surfaces the table does not name. Roles absent from the
// table hold nothing.
type Registry struct {
	roles    map[Role]PermissionSet
	surfaces map[Surface][]Permission
}

func NewRegistry(roles map[Role][]Permission, surfaces map[Surface][]Permission) *Registry {
	r := &Registry{
		roles:    make(map[Role]PermissionSet, len(roles)),
		surfaces: make(map[Surface][]Permission, len(surfaces)),
	}
	for role, perms := range roles {
		r.roles[role] = NewPermissionSet(perms...)
	}
	for surface, perms := range surfaces {
		r.surfaces[surface] = slices.Clone(perms)
	}
	return r
}

// PermissionsOf returns a copy of the permissions held by role. Unknown roles
// hold nothing.
func (r *Registry) PermissionsOf(role Role) PermissionSet {
	if r == nil {
		return PermissionSet{}
	}
	held := r.roles[role]
	out := make(PermissionSet, len(held))
	for p := range held {
		out[p] = struct{}{}
	}
	return out
}

// RequiredPermissionsOf returns the permissions of which any one grants
// visibility of surface. An empty result means the surface is public.
func (r *Registry) RequiredPermissionsOf(surface Surface) []Permission {
	if r == nil {
		return nil
	}
	return slices.Clone(r.surfaces[surface])
}

// Surfaces returns every surface named in the table, sorted.
func (r *Registry) Surfaces() []Surface {
	if r == nil {
		return nil
	}
	out := make([]Surface, 0, len(r.surfaces))
	for s := range r.surfaces {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func workflowPermissions() []Permission {
	return []Permission{PermCreateDraft, PermEditDraft, PermSubmitReview, PermApproveDocument, PermExportFinal}
}

// DefaultRoleTable is the compiled-in role to permission assignment.
func DefaultRoleTable() map[Role][]Permission {
	return map[Role][]Permission{
		RoleGlobalAdmin: append(workflowPermissions(),
			PermManagePlatform, PermManageTenant, PermManageUsers, PermViewVault,
			PermViewAudit, PermViewMatters, PermManageBilling, PermViewReports),
		RoleTenantAdmin: {PermManageTenant, PermManageUsers, PermViewAudit, PermViewMatters,
			PermViewVault, PermViewReports, PermManageBilling},
		RolePartner: append(workflowPermissions(),
			PermViewMatters, PermViewVault, PermViewReports),
		RoleSeniorCounsel: append(workflowPermissions(),
			PermViewMatters, PermViewVault),
		RoleJuniorAssociate: {PermCreateDraft, PermEditDraft, PermSubmitReview, PermViewMatters, PermViewVault},
		RoleExternalCounsel: {PermEditDraft, PermSubmitReview, PermViewVault},
		RoleLegalOpsManager: {PermViewMatters, PermViewReports, PermViewAudit, PermExportFinal},
		RoleComplianceOfficer: {PermViewAudit, PermViewReports, PermViewVault, PermExportFinal},
		RoleFinanceBilling:  {PermManageBilling, PermViewReports},
		RoleClient:          {PermViewVault},
		RoleExecutiveBoard:  {PermViewReports, PermViewAudit},
	}
}

// DefaultSurfaceTable is the compiled-in surface to required-permission table.
func DefaultSurfaceTable() map[Surface][]Permission {
	return map[Surface][]Permission{
		SurfaceDashboard:   {},
		SurfaceSettings:    {},
		SurfacePlatformOps: {PermManagePlatform},
		SurfaceTenantAdmin: {PermManageTenant, PermManageUsers},
		SurfaceVault:       {PermViewVault},
		SurfaceAudit:       {PermViewAudit},
		SurfaceMatters:     {PermViewMatters},
		SurfaceDrafting:    {PermCreateDraft, PermEditDraft},
		SurfaceApprovals:   {PermApproveDocument},
		SurfaceBilling:     {PermManageBilling},
		SurfaceReports:     {PermViewReports},
	}
}

func DefaultRegistry() *Registry {
	return NewRegistry(DefaultRoleTable(), DefaultSurfaceTable())
}
