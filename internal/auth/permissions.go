package auth

import "shopcore.dev/internal/ids"

// Resource names used in permission checks across the service.
const (
	ResourceUsers      = "users"
	ResourceRoles      = "roles"
	ResourceCategories = "categories"
	ResourceProducts   = "products"
	ResourceSettings   = "settings"
	ResourceOrders     = "orders"
)

// BuiltinPermissions is the seed catalog. Ensure is keyed on
// (resource, action, scope), so re-running the seed is a no-op.
func BuiltinPermissions() []Permission {
	type def struct {
		action Action
		scope  Scope
		name   string
	}
	crud := func(noun string) []def {
		return []def{
			{ActionCreate, ScopeAll, "Create " + noun},
			{ActionRead, ScopeAll, "View " + noun},
			{ActionUpdate, ScopeAll, "Update " + noun},
			{ActionDelete, ScopeAll, "Delete " + noun},
			{ActionManage, ScopeAll, "Manage " + noun},
		}
	}

	catalog := []struct {
		resource string
		group    string
		defs     []def
	}{
		{ResourceProducts, "Catalog", crud("products")},
		{ResourceCategories, "Catalog", crud("categories")},
		{ResourceOrders, "Orders", append(crud("orders"), def{ActionRead, ScopeOwn, "View own orders"})},
		{ResourceUsers, "Accounts", crud("users")},
		{ResourceRoles, "Accounts", crud("roles")},
		{ResourceSettings, "System", crud("settings")},
	}

	var perms []Permission
	for _, c := range catalog {
		for _, d := range c.defs {
			perms = append(perms, Permission{
				ID:       ids.New("perm"),
				Resource: c.resource,
				Action:   d.action,
				Scope:    d.scope,
				Name:     d.name,
				Group:    c.group,
			})
		}
	}
	return perms
}
