package handlers

import (
	"context"
	"html/template"
	"net/http"
	"sync"
	"time"

	chatwidget "github.com/MegaGrindStone/chat-widget"
	"github.com/MegaGrindStone/chat-widget/internal/view/web"
	"github.com/MegaGrindStone/chat-widget/internal/widget"
	"github.com/rs/zerolog"
	"github.com/tmaxmax/go-sse"
)

// PredictorFactory creates the predictor of a new widget session. Each widget gets its own so that
// per-visitor state kept by the endpoint (cookies) does not leak between widgets.
type PredictorFactory func() widget.Predictor

// WidgetConfig holds the settings every browser widget is created with.
type WidgetConfig struct {
	Title          string
	Markdown       bool
	DisplayDelay   time.Duration
	RequestTimeout time.Duration

	// SessionIdleTimeout is how long an unused widget is kept. Zero selects DefaultSessionIdleTimeout.
	SessionIdleTimeout time.Duration
}

// Main serves the browser widget: the page, the submit endpoint and the SSE stream that keeps the
// page's DOM in sync with the server-side widget of its session.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template

	newPredictor PredictorFactory
	cfg          WidgetConfig

	sessions *widgetSessions

	logger zerolog.Logger
}

type widgetSessions struct {
	mu      sync.Mutex
	widgets map[string]*widgetSession
}

type widgetSession struct {
	widget   *widget.Widget
	lastUsed time.Time
}

// DefaultSessionIdleTimeout is how long a widget nobody uses is kept before it is dropped.
const DefaultSessionIdleTimeout = 30 * time.Minute

const sessionCookie = "widget_sid"

// NewMain creates a new Main instance. It parses the embedded templates and sets up the SSE server so
// that every client subscribes to the default topic and to the topic of the widget session named by
// its session_id query parameter.
func NewMain(newPredictor PredictorFactory, cfg WidgetConfig, logger zerolog.Logger) (Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.ParseFS(
		chatwidget.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, err
	}

	if cfg.Title == "" {
		cfg.Title = "Chat"
	}
	if cfg.SessionIdleTimeout <= 0 {
		cfg.SessionIdleTimeout = DefaultSessionIdleTimeout
	}

	return Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				topics := []string{sse.DefaultTopic}

				sessionID := s.Req.URL.Query().Get("session_id")
				if sessionID != "" {
					topics = append(topics, web.SessionTopic(sessionID))
				}

				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      topics,
				}, true
			},
		},
		templates:    tmpl,
		newPredictor: newPredictor,
		cfg:          cfg,
		sessions:     &widgetSessions{widgets: make(map[string]*widgetSession)},
		logger:       logger.With().Str("module", "handlers").Logger(),
	}, nil
}

// HandleSSE streams view updates to the browser.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

// openWidget returns the widget of the session, creating it on first use. Only the home page opens
// widgets, so the sessions that exist are the ones the server has handed out.
func (m Main) openWidget(sessionID string) *widget.Widget {
	m.sessions.mu.Lock()
	defer m.sessions.mu.Unlock()

	now := time.Now()
	m.sessions.evictIdle(now, m.cfg.SessionIdleTimeout)

	if s, ok := m.sessions.widgets[sessionID]; ok {
		s.lastUsed = now
		return s.widget
	}

	w := widget.New(
		web.NewContainer(m.sseSrv, sessionID, m.logger),
		web.NewInput(m.sseSrv, sessionID, m.logger),
		web.NewTemplate(m.templates, m.cfg.Markdown),
		m.newPredictor(),
		widget.WithDisplayDelay(m.cfg.DisplayDelay),
		widget.WithRequestTimeout(m.cfg.RequestTimeout),
		widget.WithLogger(m.logger.With().Str("sessionID", sessionID).Logger()),
	)
	m.sessions.widgets[sessionID] = &widgetSession{widget: w, lastUsed: now}
	return w
}

// lookupWidget returns the widget of an open session.
func (m Main) lookupWidget(sessionID string) (*widget.Widget, bool) {
	m.sessions.mu.Lock()
	defer m.sessions.mu.Unlock()

	now := time.Now()
	m.sessions.evictIdle(now, m.cfg.SessionIdleTimeout)

	s, ok := m.sessions.widgets[sessionID]
	if !ok {
		return nil, false
	}
	s.lastUsed = now
	return s.widget, true
}

// evictIdle drops the widgets unused for longer than timeout. A submission still running on a dropped
// widget completes normally. The caller must hold s.mu.
func (s *widgetSessions) evictIdle(now time.Time, timeout time.Duration) {
	for id, ws := range s.widgets {
		if now.Sub(ws.lastUsed) > timeout {
			delete(s.widgets, id)
		}
	}
}

// Shutdown gracefully terminates the SSE server. It tells every connected page to stop reconnecting
// and waits up to 5 seconds for connections to terminate. After the timeout, any remaining
// connections are forcefully closed.
func (m Main) Shutdown(ctx context.Context) error {
	e := &sse.Message{Type: sse.Type(web.CloseEvent)}
	// An SSE event without data is never dispatched by the browser
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
