package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// Ollama embeds texts with a model served by an Ollama instance.
type Ollama struct {
	model string

	client *api.Client
}

// NewOllama creates a new Ollama embedder with the specified host URL and model name. The host
// parameter should be a valid URL pointing to an Ollama server.
func NewOllama(host, model string) (Ollama, error) {
	u, err := url.Parse(host)
	if err != nil {
		return Ollama{}, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	return Ollama{
		model:  model,
		client: api.NewClient(u, &http.Client{}),
	}, nil
}

// Embed implements Embedder using the Ollama embed API. All texts are sent in one request.
func (o Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := api.EmbedRequest{
		Model: o.model,
		Input: texts,
	}

	res, err := o.client.Embed(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}

	return res.Embeddings, nil
}
