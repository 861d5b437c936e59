package auth

// scopeSatisfies reports whether a held grant scope covers the requested
// scope. ALL covers OWN; OWN never covers ALL.
func scopeSatisfies(held, requested Scope) bool {
	return held == requested || held == ScopeAll
}

// HasPermission decides whether the user may perform action on resource at
// the requested scope.
//
// Order of evaluation: no role denies; the super-admin role allows
// unconditionally; an exact (resource, action) grant with a satisfying scope
// allows; a MANAGE grant on the resource with a satisfying scope allows;
// everything else denies.
func HasPermission(user *User, resource string, action Action, scope Scope) bool {
	if user == nil || user.Role == nil {
		return false
	}
	if user.Role.Name == SuperAdminRole {
		return true
	}
	if scope == "" {
		scope = ScopeAll
	}
	for _, g := range user.Role.Grants {
		if g.Resource == resource && g.Action == action && scopeSatisfies(g.Scope, scope) {
			return true
		}
	}
	for _, g := range user.Role.Grants {
		if g.Resource == resource && g.Action == ActionManage && scopeSatisfies(g.Scope, scope) {
			return true
		}
	}
	return false
}

// CanAssignRole guards role (re)assignment against privilege escalation.
// Only a super admin may hand out the super-admin role; every other
// assignment requires UPDATE or MANAGE on the roles resource.
func CanAssignRole(actor *User, targetRoleName string) bool {
	if actor == nil || actor.Role == nil {
		return false
	}
	if actor.Role.Name == SuperAdminRole {
		return true
	}
	if targetRoleName == SuperAdminRole {
		return false
	}
	return HasPermission(actor, "roles", ActionUpdate, ScopeAll) ||
		HasPermission(actor, "roles", ActionManage, ScopeAll)
}
