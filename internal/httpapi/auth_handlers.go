package httpapi

import (
	"net/http"

	"shopcore.dev/internal/auth"
	"shopcore.dev/internal/events"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

func (a *API) clientMeta(r *http.Request) auth.ClientMeta {
	return auth.ClientMeta{
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, session, err := a.auth.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}, a.clientMeta(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.bus.Publish(r.Context(), events.NewUserEvent(events.UserCreated, user.ID, user.Email))
	a.setSessionCookie(w, session.Token, session.ExpiresAt)
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, session, err := a.auth.Login(r.Context(), req.Email, req.Password, a.clientMeta(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.bus.Publish(r.Context(), events.NewSessionEvent(events.UserLogin, user.ID, session.ID, session.IPAddress))
	a.setSessionCookie(w, session.Token, session.ExpiresAt)
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if cookie, err := r.Cookie(a.cookieName); err == nil && cookie.Value != "" {
		if err := a.auth.DestroySession(r.Context(), cookie.Value); err != nil {
			handleError(w, r, err)
			return
		}
	}
	if user, ok := auth.UserFromContext(r.Context()); ok {
		a.bus.Publish(r.Context(), events.NewSessionEvent(events.UserLogout, user.ID, "", clientIP(r)))
	}
	a.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
