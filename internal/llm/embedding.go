package llm

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder generates embeddings through the OpenAI (or Azure OpenAI)
// embeddings API.
type OpenAIEmbedder struct {
	client   *openai.Client
	model    string
	provider string
}

// NewOpenAIEmbedder creates an embedder for the plain OpenAI API.
func NewOpenAIEmbedder(apiKey, model string) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	return &OpenAIEmbedder{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		provider: "openai",
	}
}

// NewAzureEmbedder creates an embedder for an Azure OpenAI embedding
// deployment.
func NewAzureEmbedder(apiKey, endpoint, deployment, apiVersion string) *OpenAIEmbedder {
	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	cfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	return &OpenAIEmbedder{
		client:   openai.NewClientWithConfig(cfg),
		model:    deployment,
		provider: "azure",
	}
}

// Name returns the provider name.
func (e *OpenAIEmbedder) Name() string {
	return e.provider
}

// Embed generates an embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, &ProviderError{Provider: e.provider, Message: "no embedding returned"}
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, wrapEmbedErr(e.provider, err)
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func wrapEmbedErr(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: provider, Message: apiErr.Message, Code: apiErr.HTTPStatusCode}
	}
	return err
}
