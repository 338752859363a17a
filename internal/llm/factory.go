package llm

import (
	"github.com/petclinic/genai-service/internal/config"
	"github.com/petclinic/genai-service/internal/logging"
)

// NewClientFromConfig builds the chat-completion client selected by the
// configuration. Azure OpenAI wins when both its key and endpoint are set,
// matching the original service's provider selection. Returns nil when no
// credentials are configured; callers must treat that as "chat disabled".
func NewClientFromConfig(cfg config.LLMConfig, log *logging.Logger) Client {
	switch cfg.Provider() {
	case config.ProviderAzure:
		log.Info().Str("endpoint", cfg.Azure.Endpoint).Str("deployment", cfg.Azure.Deployment).Msg("using Azure OpenAI")
		return NewAzureClient(cfg.Azure.APIKey, cfg.Azure.Endpoint, cfg.Azure.Deployment, cfg.Azure.APIVersion)
	case config.ProviderOpenAI:
		log.Info().Str("model", cfg.Model).Msg("using OpenAI")
		return NewOpenAIClient(cfg.APIKey, cfg.Model)
	default:
		log.Warn().Msg("no LLM credentials configured, chat is disabled")
		return nil
	}
}

// NewEmbedderFromConfig builds the embedder matching the selected provider.
// Returns nil when no credentials are configured.
func NewEmbedderFromConfig(cfg config.LLMConfig, log *logging.Logger) Embedder {
	switch cfg.Provider() {
	case config.ProviderAzure:
		log.Info().Str("deployment", cfg.Azure.EmbeddingDeployment).Msg("using Azure OpenAI embeddings")
		return NewAzureEmbedder(cfg.Azure.APIKey, cfg.Azure.Endpoint, cfg.Azure.EmbeddingDeployment, cfg.Azure.APIVersion)
	case config.ProviderOpenAI:
		log.Info().Str("model", cfg.Embedding).Msg("using OpenAI embeddings")
		return NewOpenAIEmbedder(cfg.APIKey, cfg.Embedding)
	default:
		return nil
	}
}
