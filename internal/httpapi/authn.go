package httpapi

import (
	"net/http"
	"time"

	"shopcore.dev/internal/auth"
)

// withSession resolves the session cookie on every request and, when it
// maps to a live session, attaches the user to the context. Requests
// without a valid cookie pass through anonymous; handlers that need a user
// enforce it themselves. An expired or unknown cookie is cleared so the
// browser stops sending it.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(a.cookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := a.auth.ResolveSession(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}
		if user == nil {
			a.clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}
		ctx := auth.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireUser returns the authenticated user or writes a 401.
func (a *API) requireUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return user, true
}

// ensurePermission returns the authenticated user when it holds the grant,
// writing 401/403 otherwise.
func (a *API) ensurePermission(w http.ResponseWriter, r *http.Request, resource string, action auth.Action, scope auth.Scope) (*auth.User, bool) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return nil, false
	}
	if !auth.HasPermission(user, resource, action, scope) {
		writeError(w, r, http.StatusForbidden, "permission denied")
		return nil, false
	}
	return user, true
}

func (a *API) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
