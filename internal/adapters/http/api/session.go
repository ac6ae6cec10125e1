package api

import (
	"net/http"
	"time"
)

// SessionCookie names the cookie carrying the browser session id.
const SessionCookie = "paperlens_session"

const sessionMaxAge = 24 * time.Hour

func sessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// bindSession sets the cookie when the session id changed.
func bindSession(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" || id == sessionID(r) {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
