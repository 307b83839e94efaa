package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strings"

	"github.com/MegaGrindStone/chat-widget/internal/models"
	"gopkg.in/yaml.v3"
)

// IntentModel classifies a message into one intent of a catalogue by comparing its embedding with the
// mean embedding of each intent's patterns.
type IntentModel struct {
	embedder Embedder

	tags      []string
	vectors   [][]float32
	responses map[string][]string

	pick func(n int) int
}

// NoAnswerText is the response of an intent that has no responses.
const NoAnswerText = "Sorry, I don't know how to answer that yet."

// ReadIntents decodes an intent catalogue. Files ending in .yaml or .yml are read as YAML, anything
// else as JSON.
func ReadIntents(r io.Reader, name string) (models.IntentCatalogue, error) {
	var cat models.IntentCatalogue

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(r).Decode(&cat); err != nil {
			return cat, fmt.Errorf("failed to decode intents yaml: %w", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&cat); err != nil {
			return cat, fmt.Errorf("failed to decode intents json: %w", err)
		}
	}

	return cat, nil
}

// NewIntentModel embeds every pattern of the catalogue and builds one vector per intent. It fails if the
// catalogue is empty or the embedder fails.
func NewIntentModel(ctx context.Context, cat models.IntentCatalogue, embedder Embedder) (*IntentModel, error) {
	if len(cat.Intents) == 0 {
		return nil, errors.New("intent catalogue is empty")
	}

	m := &IntentModel{
		embedder:  embedder,
		responses: make(map[string][]string, len(cat.Intents)),
		pick:      rand.IntN,
	}

	for _, intent := range cat.Intents {
		patterns := intent.Patterns
		if len(patterns) == 0 {
			patterns = []string{""}
		}

		embs, err := embedder.Embed(ctx, patterns)
		if err != nil {
			return nil, fmt.Errorf("failed to embed patterns of intent %q: %w", intent.Tag, err)
		}

		m.tags = append(m.tags, intent.Tag)
		m.vectors = append(m.vectors, mean(embs))
		m.responses[intent.Tag] = intent.Responses
	}

	return m, nil
}

// Tags returns the intent tags in catalogue order.
func (m *IntentModel) Tags() []string {
	return m.tags
}

// Predict picks the intent closest to text. Confidence is the cosine similarity mapped from [-1, 1] to
// [0, 1]; the response is a random one of the intent's responses. A message that is not similar to
// any intent at all (best similarity <= 0) gets confidence 0.
func (m *IntentModel) Predict(ctx context.Context, text string) (models.Prediction, error) {
	embs, err := m.embedder.Embed(ctx, []string{text})
	if err != nil {
		return models.Prediction{}, fmt.Errorf("failed to embed message: %w", err)
	}
	if len(embs) != 1 {
		return models.Prediction{}, fmt.Errorf("expected one embedding, got %d", len(embs))
	}

	best, bestSim := 0, math.Inf(-1)
	for i, v := range m.vectors {
		if sim := cosine(embs[0], v); sim > bestSim {
			best, bestSim = i, sim
		}
	}

	tag := m.tags[best]
	response := NoAnswerText
	if resps := m.responses[tag]; len(resps) > 0 {
		response = resps[m.pick(len(resps))]
	}

	confidence := 0.0
	if bestSim > 0 {
		confidence = min(1, (bestSim+1)/2)
	}

	return models.Prediction{
		Tag:        tag,
		Response:   response,
		Confidence: confidence,
	}, nil
}

func mean(vs [][]float32) []float32 {
	if len(vs) == 0 {
		return nil
	}
	out := make([]float32, len(vs[0]))
	for _, v := range vs {
		for i := range out {
			if i < len(v) {
				out[i] += v[i]
			}
		}
	}
	for i := range out {
		out[i] /= float32(len(vs))
	}
	return out
}

// cosine returns 0 when either vector is all zeros.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range min(len(a), len(b)) {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
