package handlers

import (
	"net/http"

	"github.com/google/uuid"
)

type homePageData struct {
	Title     string
	SessionID string
}

// HandleHome renders the widget page. A visitor without a widget session cookie gets a new session.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	sessionID := ""
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		sessionID = c.Value
	} else {
		sessionID = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	m.openWidget(sessionID)

	data := homePageData{
		Title:     m.cfg.Title,
		SessionID: sessionID,
	}
	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		m.logger.Error().Err(err).Msg("Failed to render home page")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
