package httpapi

import (
	"net/http"
	"strings"

	"shopcore.dev/internal/audit"
	"shopcore.dev/internal/auth"
	"shopcore.dev/internal/events"
)

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.ensurePermission(w, r, auth.ResourceUsers, auth.ActionRead, auth.ScopeAll); !ok {
			return
		}
		users, err := a.auth.ListUsers(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	case http.MethodPost:
		actor, ok := a.ensurePermission(w, r, auth.ResourceUsers, auth.ActionCreate, auth.ScopeAll)
		if !ok {
			return
		}
		var in auth.UserInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.auth.CreateUser(r.Context(), actor, in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.create", map[string]any{"target": user.ID})
		a.bus.Publish(r.Context(), events.NewUserEvent(events.UserCreated, user.ID, user.Email))
		writeJSON(w, http.StatusCreated, map[string]any{"user": user})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.ensurePermission(w, r, auth.ResourceUsers, auth.ActionRead, auth.ScopeAll); !ok {
			return
		}
		user, err := a.auth.GetUser(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": user})
	case http.MethodPatch, http.MethodPut:
		actor, ok := a.ensurePermission(w, r, auth.ResourceUsers, auth.ActionUpdate, auth.ScopeAll)
		if !ok {
			return
		}
		var in auth.UserInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.auth.UpdateUser(r.Context(), actor, id, in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.update", map[string]any{"target": user.ID})
		a.bus.Publish(r.Context(), events.NewUserEvent(events.UserUpdated, user.ID, user.Email))
		writeJSON(w, http.StatusOK, map[string]any{"user": user})
	case http.MethodDelete:
		if _, ok := a.ensurePermission(w, r, auth.ResourceUsers, auth.ActionDelete, auth.ScopeAll); !ok {
			return
		}
		if err := a.auth.DeleteUser(r.Context(), id); err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.delete", map[string]any{"target": id})
		a.bus.Publish(r.Context(), events.NewUserEvent(events.UserDeleted, id, ""))
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.ensurePermission(w, r, auth.ResourceRoles, auth.ActionRead, auth.ScopeAll); !ok {
			return
		}
		roles, err := a.auth.ListRoles(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
	case http.MethodPost:
		if _, ok := a.ensurePermission(w, r, auth.ResourceRoles, auth.ActionCreate, auth.ScopeAll); !ok {
			return
		}
		var in auth.RoleInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.auth.CreateRole(r.Context(), in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "role.create", map[string]any{"target": role.ID})
		if err := a.bus.PublishWait(r.Context(), events.NewRoleEvent(events.RoleCreated, role.ID, role.Name)); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"role": role})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRoleByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/roles/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.ensurePermission(w, r, auth.ResourceRoles, auth.ActionRead, auth.ScopeAll); !ok {
			return
		}
		role, err := a.auth.GetRole(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"role": role})
	case http.MethodPatch, http.MethodPut:
		if _, ok := a.ensurePermission(w, r, auth.ResourceRoles, auth.ActionUpdate, auth.ScopeAll); !ok {
			return
		}
		var in auth.RoleInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.auth.UpdateRole(r.Context(), id, in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "role.update", map[string]any{"target": role.ID})
		// Role changes invalidate cached permission snapshots; wait for it.
		if err := a.bus.PublishWait(r.Context(), events.NewRoleEvent(events.RoleUpdated, role.ID, role.Name)); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"role": role})
	case http.MethodDelete:
		if _, ok := a.ensurePermission(w, r, auth.ResourceRoles, auth.ActionDelete, auth.ScopeAll); !ok {
			return
		}
		if err := a.auth.DeleteRole(r.Context(), id); err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "role.delete", map[string]any{"target": id})
		if err := a.bus.PublishWait(r.Context(), events.NewRoleEvent(events.RoleDeleted, id, "")); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.ensurePermission(w, r, auth.ResourceRoles, auth.ActionRead, auth.ScopeAll); !ok {
		return
	}
	perms, err := a.auth.ListPermissions(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	// Grouped the way the admin UI renders them.
	grouped := map[string][]auth.Permission{}
	for _, p := range perms {
		grouped[p.Group] = append(grouped[p.Group], p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"permissions": grouped})
}
