package handlers

import (
	"context"
	"net/http"
)

// HandleSubmit runs one submission of the caller's widget. The page posts here on both a click on the
// send button and an Enter press; the "message" form field carries the input's text and "session_id"
// (or the session cookie) names the widget. Only sessions opened by the home page are accepted, and
// when both are sent they must agree.
//
// The handler returns once the reply has been pushed to the page. Blank messages are accepted and
// ignored, like the widget ignores them. The submission is detached from the request, so a client
// going away does not abort the pending prediction.
func (m Main) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error().Str("method", r.Method).Msg("Method not allowed")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.FormValue("session_id")
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if sessionID != "" && sessionID != c.Value {
			m.logger.Error().Str("sessionID", sessionID).Msg("Session does not match cookie")
			http.Error(w, "Session does not match cookie", http.StatusBadRequest)
			return
		}
		sessionID = c.Value
	}
	if sessionID == "" {
		m.logger.Error().Msg("Session is required")
		http.Error(w, "Session is required", http.StatusBadRequest)
		return
	}

	wdg, ok := m.lookupWidget(sessionID)
	if !ok {
		m.logger.Error().Str("sessionID", sessionID).Msg("Unknown session")
		http.Error(w, "Unknown session", http.StatusBadRequest)
		return
	}

	msg := r.FormValue("message")

	wdg.Submit(context.WithoutCancel(r.Context()), msg)

	w.WriteHeader(http.StatusNoContent)
}
