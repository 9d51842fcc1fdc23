package handlers

import (
	"net/http"
)

type adminResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Login verifies form credentials and stores the session token in an
// HttpOnly cookie.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form data")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeDetail(w, http.StatusUnauthorized, "check credentials")
		return
	}

	admin, token, err := a.auth.Login(r.Context(), username, password)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "check credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, adminResponse{ID: admin.ID, Username: admin.Username})
}
