package widget

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MegaGrindStone/chat-widget/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Node is a view element produced by a Template and placed into a Container. Views identify their
// nodes by ID so that a node can be removed again later.
type Node interface {
	NodeID() string
}

// Container is the scrollable panel the widget appends message rows to.
type Container interface {
	Append(node Node)
	Remove(node Node)
	ScrollToBottom()
}

// Input is the text field the user types into.
type Input interface {
	Value() string
	Clear()
}

// Template builds view nodes: one row per message (avatar and bubble), and the typing placeholder row.
type Template interface {
	Message(msg models.Message) (Node, error)
	Typing() (Node, error)
}

// Predictor exchanges one message with the prediction endpoint. A non-nil error reports a transport
// failure (the endpoint could not be reached or did not answer with JSON). A response with Success set
// to false covers both an endpoint-reported failure and a malformed answer.
type Predictor interface {
	Predict(ctx context.Context, text string) (models.PredictResponse, error)
}

const (
	// FailureText is shown when the endpoint reports a failure or answers with an unexpected shape.
	FailureText = "Sorry, something went wrong. Try again later."
	// NetworkErrorText is shown when the endpoint cannot be reached or its answer cannot be parsed.
	NetworkErrorText = "Network error. Check the server."

	// DefaultDisplayDelay is the pause between the typing placeholder going away and the bot reply
	// appearing.
	DefaultDisplayDelay = 300 * time.Millisecond

	// KeyEnter is the key name that submits the input field.
	KeyEnter = "Enter"
)

// Widget is the chat controller. It owns no state besides what it has put into the view: every
// submission renders the user's bubble, shows a typing placeholder, waits for exactly one prediction
// and replaces the placeholder with the bot's bubble.
//
// Submissions are not serialized against each other; each one removes only its own placeholder. View
// mutations are serialized, so views do not need to be safe for concurrent use.
type Widget struct {
	container Container
	input     Input
	tmpl      Template
	predictor Predictor

	displayDelay   time.Duration
	requestTimeout time.Duration

	logger zerolog.Logger

	mu sync.Mutex
}

// Option configures a Widget.
type Option func(*Widget)

// WithDisplayDelay sets the pause before a successful reply is rendered.
func WithDisplayDelay(d time.Duration) Option {
	return func(w *Widget) {
		w.displayDelay = d
	}
}

// WithRequestTimeout bounds every prediction request. Zero, the default, leaves requests unbounded.
func WithRequestTimeout(d time.Duration) Option {
	return func(w *Widget) {
		w.requestTimeout = d
	}
}

// WithLogger sets the logger transport failures are reported to.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Widget) {
		w.logger = logger.With().Str("module", "widget").Logger()
	}
}

// New creates a Widget bound to the given view collaborators and prediction endpoint.
func New(container Container, input Input, tmpl Template, predictor Predictor, opts ...Option) *Widget {
	w := &Widget{
		container:    container,
		input:        input,
		tmpl:         tmpl,
		predictor:    predictor,
		displayDelay: DefaultDisplayDelay,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Click is the submit affordance: it submits whatever the input field holds.
func (w *Widget) Click(ctx context.Context) {
	w.Submit(ctx, w.input.Value())
}

// KeyDown handles a key pressed in the input field. Only Enter submits.
func (w *Widget) KeyDown(ctx context.Context, key string) {
	if key != KeyEnter {
		return
	}
	w.Submit(ctx, w.input.Value())
}

// Submit runs one submission to completion. Blank text is ignored. Failures never surface to the
// caller: they end up as bot bubbles.
func (w *Widget) Submit(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	w.render(models.Message{
		ID:        uuid.New().String(),
		Text:      text,
		Origin:    models.OriginUser,
		Timestamp: time.Now(),
	})

	w.mu.Lock()
	w.input.Clear()
	w.mu.Unlock()

	typing := w.addTyping()
	w.send(ctx, text, typing)
}

func (w *Widget) send(ctx context.Context, text string, typing Node) {
	reqCtx := ctx
	if w.requestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, w.requestTimeout)
		defer cancel()
	}

	res, err := w.predictor.Predict(reqCtx, text)
	w.removeTyping(typing)

	if err != nil {
		w.logger.Error().Err(err).Str("message", text).Msg("Prediction request failed")
		w.reply(NetworkErrorText)
		return
	}

	if !res.Success {
		w.logger.Debug().Str("error", res.Error).Msg("Prediction endpoint reported failure")
		w.reply(FailureText)
		return
	}

	if w.displayDelay > 0 {
		t := time.NewTimer(w.displayDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			w.logger.Debug().Err(ctx.Err()).Msg("Reply dropped, submission canceled")
			return
		case <-t.C:
		}
	}
	w.reply(res.Response)
}

func (w *Widget) reply(text string) {
	w.render(models.Message{
		ID:        uuid.New().String(),
		Text:      text,
		Origin:    models.OriginBot,
		Timestamp: time.Now(),
	})
}

func (w *Widget) render(msg models.Message) {
	node, err := w.tmpl.Message(msg)
	if err != nil {
		w.logger.Error().Err(err).Str("origin", string(msg.Origin)).Msg("Failed to render message")
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.container.Append(node)
	w.container.ScrollToBottom()
}

func (w *Widget) addTyping() Node {
	node, err := w.tmpl.Typing()
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to render typing placeholder")
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.container.Append(node)
	w.container.ScrollToBottom()
	return node
}

func (w *Widget) removeTyping(node Node) {
	if node == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.container.Remove(node)
}
