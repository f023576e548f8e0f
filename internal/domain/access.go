package domain

// CanAccessSurface reports whether role may view surface. GLOBAL_ADMIN always
// passes, even against an empty or nil registry. Otherwise a public surface
// passes and a gated one requires any one of its permissions.
func CanAccessSurface(reg *Registry, role Role, surface Surface) bool {
	if role == RoleGlobalAdmin {
		return true
	}
	required := reg.RequiredPermissionsOf(surface)
	if len(required) == 0 {
		return true
	}
	return reg.PermissionsOf(role).HasAny(required)
}

// CanPerformAction reports whether role holds the permission named by action.
// There is no bypass here; GLOBAL_ADMIN acts through its table entry.
func CanPerformAction(reg *Registry, role Role, action WorkflowAction) bool {
	return reg.PermissionsOf(role).Has(action.Permission())
}
