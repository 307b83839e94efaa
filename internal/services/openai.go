package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAI embeds texts with OpenAI's embeddings API, or with any server speaking the same protocol when
// a base URL is given.
type OpenAI struct {
	model string

	client *goopenai.Client

	logger zerolog.Logger
}

// DefaultOpenAIEmbeddingModel is used when no model is configured.
const DefaultOpenAIEmbeddingModel = string(goopenai.SmallEmbedding3)

// NewOpenAI creates a new OpenAI embedder. An empty baseURL keeps the library default.
func NewOpenAI(apiKey, baseURL, model string, logger zerolog.Logger) OpenAI {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIEmbeddingModel
	}

	return OpenAI{
		model:  model,
		client: goopenai.NewClientWithConfig(cfg),
		logger: logger.With().Str("module", "openai").Logger(),
	}
}

// Embed implements Embedder.
func (o OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := goopenai.EmbeddingRequestStrings{
		Input: texts,
		Model: goopenai.EmbeddingModel(o.model),
	}

	res, err := o.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	o.logger.Debug().
		Int("texts", len(texts)).
		Int("promptTokens", res.Usage.PromptTokens).
		Msg("Embeddings created")

	out := make([][]float32, len(texts))
	for _, d := range res.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for text %d", i)
		}
	}

	return out, nil
}
