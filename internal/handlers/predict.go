package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/MegaGrindStone/chat-widget/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Classifier predicts the intent of a message.
type Classifier interface {
	Predict(ctx context.Context, text string) (models.Prediction, error)
}

// SessionStore keeps the conversation memory of the prediction endpoint. Session returns an empty
// session carrying the requested ID when nothing is stored yet.
type SessionStore interface {
	Session(ctx context.Context, id string) (models.Session, error)
	SaveSession(ctx context.Context, sess models.Session) error
}

// Predict serves the prediction endpoint the widget talks to.
type Predict struct {
	classifier Classifier
	store      SessionStore
	threshold  float64

	// locks serializes the read-modify-write of one session. Different sessions never wait on each
	// other, not even while the classifier calls out to an embedding server.
	locks *sessionLocks

	logger zerolog.Logger
}

const (
	// DefaultConfidenceThreshold is the confidence under which the fallback answer is given.
	DefaultConfidenceThreshold = 0.45

	// FallbackText answers messages the classifier is not confident about.
	FallbackText = "Sorry, I didn't understand. Could you rephrase or provide more details?"

	predictCookie = "sid"

	orderStatusTag   = "order_status"
	orderFollowupTag = "order_status_followup"
	unknownTag       = "unknown"

	followupConfidence = 0.95

	orderFollowupFormat = "Thanks — I found order **%s**. Current status: *In transit*. " +
		"Estimated delivery: 2–4 business days."
)

var orderIDRegex = regexp.MustCompile(`\b([A-Za-z0-9\-]{5,})\b`)

// NewPredict creates the prediction endpoint handler. A non-positive threshold selects
// DefaultConfidenceThreshold.
func NewPredict(classifier Classifier, store SessionStore, threshold float64, logger zerolog.Logger) Predict {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return Predict{
		classifier: classifier,
		store:      store,
		threshold:  threshold,
		locks:      &sessionLocks{locks: make(map[string]*sessionLock)},
		logger:     logger.With().Str("module", "predict").Logger(),
	}
}

// HandlePredict answers {"message": "..."} with {"success": true, "tag", "response", "confidence"}.
//
// Right after the order status intent, a message containing something that looks like an order id
// gets a tracking answer instead of a classification. Low-confidence classifications get
// FallbackText. Empty messages are rejected with 400 and {"success": false}.
func (p Predict) HandlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		p.logger.Error().Str("method", r.Method).Msg("Method not allowed")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.PredictRequest
	// A missing or broken body is treated as an empty message.
	_ = json.NewDecoder(r.Body).Decode(&req)

	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		writeJSON(w, http.StatusBadRequest, models.PredictResponse{Success: false, Error: "Empty message"}, p.logger)
		return
	}

	sessionID := p.ensureSession(w, r)

	unlock := p.locks.lock(sessionID)
	defer unlock()

	sess, err := p.store.Session(r.Context(), sessionID)
	if err != nil {
		p.logger.Error().Err(err).Str("sessionID", sessionID).Msg("Failed to load session")
		writeJSON(w, http.StatusInternalServerError, models.PredictResponse{Error: err.Error()}, p.logger)
		return
	}

	res, err := p.answer(r.Context(), &sess, msg)
	if err != nil {
		p.logger.Error().Err(err).Str("message", msg).Msg("Failed to predict")
		writeJSON(w, http.StatusInternalServerError, models.PredictResponse{Error: err.Error()}, p.logger)
		return
	}

	if err := p.store.SaveSession(r.Context(), sess); err != nil {
		p.logger.Error().Err(err).Str("sessionID", sessionID).Msg("Failed to save session")
		writeJSON(w, http.StatusInternalServerError, models.PredictResponse{Error: err.Error()}, p.logger)
		return
	}

	p.logger.Debug().
		Str("sessionID", sessionID).
		Str("tag", res.Tag).
		Float64("confidence", res.Confidence).
		Msg("Prediction")

	writeJSON(w, http.StatusOK, res, p.logger)
}

// answer computes the reply to msg and records the exchange in sess.
func (p Predict) answer(ctx context.Context, sess *models.Session, msg string) (models.PredictResponse, error) {
	if sess.LastTag == orderStatusTag {
		if match := orderIDRegex.FindStringSubmatch(msg); match != nil {
			reply := fmt.Sprintf(orderFollowupFormat, match[1])
			record(sess, msg, reply, orderFollowupTag)
			return models.PredictResponse{
				Success:    true,
				Tag:        orderFollowupTag,
				Response:   reply,
				Confidence: followupConfidence,
			}, nil
		}
	}

	pred, err := p.classifier.Predict(ctx, msg)
	if err != nil {
		return models.PredictResponse{}, err
	}
	record(sess, msg, pred.Response, pred.Tag)

	if pred.Confidence < p.threshold {
		return models.PredictResponse{
			Success:    true,
			Tag:        unknownTag,
			Response:   FallbackText,
			Confidence: pred.Confidence,
		}, nil
	}

	return models.PredictResponse{
		Success:    true,
		Tag:        pred.Tag,
		Response:   pred.Response,
		Confidence: pred.Confidence,
	}, nil
}

func record(sess *models.Session, msg, reply, tag string) {
	sess.History = append(sess.History,
		models.Turn{Role: models.TurnRoleUser, Text: msg},
		models.Turn{Role: models.TurnRoleBot, Text: reply, Tag: tag},
	)
	sess.LastTag = tag
}

func (p Predict) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(predictCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     predictCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lock locks the session id and returns its unlock function. Locks of idle sessions are dropped.
func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	sl, ok := l.locks[id]
	if !ok {
		sl = &sessionLock{}
		l.locks[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()

	return func() {
		sl.mu.Unlock()

		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("Failed to write response")
	}
}
