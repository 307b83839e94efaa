package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MegaGrindStone/chat-widget/internal/models"
	"github.com/MegaGrindStone/chat-widget/internal/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCatalogue = models.IntentCatalogue{
	Intents: []models.Intent{
		{
			Tag:       "greeting",
			Patterns:  []string{"hi", "hello", "hey there", "good morning"},
			Responses: []string{"Hello!", "Hi there!"},
		},
		{
			Tag:       "order_status",
			Patterns:  []string{"where is my order", "track my order", "order status"},
			Responses: []string{"Please share your order id."},
		},
		{
			Tag:      "silent",
			Patterns: []string{"say nothing"},
		},
	},
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedder down")
}

func TestIntentModelPredict(t *testing.T) {
	m, err := services.NewIntentModel(context.Background(), testCatalogue, services.NewBagOfWords(1<<16))
	require.NoError(t, err)
	assert.Equal(t, []string{"greeting", "order_status", "silent"}, m.Tags())

	tests := []struct {
		text      string
		wantTag   string
		responses []string
	}{
		{text: "Hello", wantTag: "greeting", responses: []string{"Hello!", "Hi there!"}},
		{text: "Where is my order?", wantTag: "order_status", responses: []string{"Please share your order id."}},
		{text: "please say nothing", wantTag: "silent", responses: []string{services.NoAnswerText}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			p, err := m.Predict(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTag, p.Tag)
			assert.Contains(t, tt.responses, p.Response)
			assert.Greater(t, p.Confidence, 0.5)
			assert.LessOrEqual(t, p.Confidence, 1.0)
		})
	}
}

func TestIntentModelUnknownWords(t *testing.T) {
	m, err := services.NewIntentModel(context.Background(), testCatalogue, services.NewBagOfWords(1<<16))
	require.NoError(t, err)

	for _, text := range []string{"xyzzy plugh", "qwertyuiop"} {
		p, err := m.Predict(context.Background(), text)
		require.NoError(t, err)
		assert.Zero(t, p.Confidence, text)
	}
}

func TestNewIntentModelErrors(t *testing.T) {
	_, err := services.NewIntentModel(context.Background(), models.IntentCatalogue{}, services.NewBagOfWords(1<<16))
	assert.Error(t, err)

	_, err = services.NewIntentModel(context.Background(), testCatalogue, failingEmbedder{})
	assert.ErrorContains(t, err, "embedder down")
}

func TestReadIntents(t *testing.T) {
	jsonSrc := `{"intents": [{"tag": "greeting", "patterns": ["hi"], "responses": ["Hello!"]}]}`
	yamlSrc := "intents:\n  - tag: greeting\n    patterns: [hi]\n    responses: [Hello!]\n"
	want := models.IntentCatalogue{Intents: []models.Intent{
		{Tag: "greeting", Patterns: []string{"hi"}, Responses: []string{"Hello!"}},
	}}

	got, err := services.ReadIntents(strings.NewReader(jsonSrc), "intents.json")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = services.ReadIntents(strings.NewReader(yamlSrc), "intents.YAML")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = services.ReadIntents(strings.NewReader("{"), "intents.json")
	assert.Error(t, err)
}

func TestBagOfWordsDimensions(t *testing.T) {
	embs, err := services.NewBagOfWords(64).Embed(context.Background(), []string{"Hello, World", ""})
	require.NoError(t, err)
	require.Len(t, embs, 2)
	assert.Len(t, embs[0], 64)

	var sum float32
	for _, v := range embs[1] {
		sum += v
	}
	assert.Zero(t, sum)
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)

		embs := make([][]float32, len(req.Input))
		for i := range embs {
			embs[i] = []float32{float32(i), 1}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"model": req.Model, "embeddings": embs})
	}))
	defer srv.Close()

	o, err := services.NewOllama(srv.URL, "all-minilm")
	require.NoError(t, err)

	embs, err := o.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 1}}, embs)
}

func TestOpenAIEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		// Out of order on purpose: the index decides the position.
		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-3-small",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0.5, 0.5]},
				{"object": "embedding", "index": 0, "embedding": [1, 0]}
			],
			"usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`))
	}))
	defer srv.Close()

	o := services.NewOpenAI("test-key", srv.URL+"/v1", "", zerolog.Nop())
	embs, err := o.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0.5, 0.5}}, embs)
}
