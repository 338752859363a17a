package config

// Config is the root configuration for the PetClinic GenAI service.
type Config struct {
	Server      ServerConfig      `yaml:"server,omitempty"`
	LLM         LLMConfig         `yaml:"llm,omitempty"`
	Services    ServicesConfig    `yaml:"services,omitempty"`
	VectorStore VectorStoreConfig `yaml:"vectorStore,omitempty"`
	Session     SessionConfig     `yaml:"session,omitempty"`
	Logging     LoggingConfig     `yaml:"logging,omitempty"`
}

// ServerConfig controls the HTTP/WebSocket façade.
type ServerConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string   `yaml:"customBindHost,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// LLMConfig selects and configures the chat-completion provider.
// Azure OpenAI wins whenever both its key and endpoint are present;
// otherwise the plain OpenAI settings apply. The two are never active
// at the same time.
type LLMConfig struct {
	APIKey      string      `yaml:"apiKey,omitempty"` // OpenAI API key
	Model       string      `yaml:"model,omitempty"`
	MaxTokens   int         `yaml:"maxTokens,omitempty"`
	Temperature *float64    `yaml:"temperature,omitempty"`
	Embedding   string      `yaml:"embedding,omitempty"` // embedding model ID
	Azure       AzureConfig `yaml:"azure,omitempty"`
}

// AzureConfig holds Azure OpenAI settings.
type AzureConfig struct {
	APIKey              string `yaml:"apiKey,omitempty"`
	Endpoint            string `yaml:"endpoint,omitempty"`
	Deployment          string `yaml:"deployment,omitempty"`
	EmbeddingDeployment string `yaml:"embeddingDeployment,omitempty"`
	APIVersion          string `yaml:"apiVersion,omitempty"`
}

// Provider names resolved from LLMConfig.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
)

// Provider returns which chat-completion provider the configuration selects,
// or "" when no credentials are present.
func (c LLMConfig) Provider() string {
	if c.Azure.APIKey != "" && c.Azure.Endpoint != "" {
		return ProviderAzure
	}
	if c.APIKey != "" {
		return ProviderOpenAI
	}
	return ""
}

// ServicesConfig points at the downstream record-keeping services.
type ServicesConfig struct {
	CustomersURL   string `yaml:"customersUrl,omitempty"`
	VetsURL        string `yaml:"vetsUrl,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// VectorStoreConfig controls the persisted semantic search index.
type VectorStoreConfig struct {
	Dir        string `yaml:"dir,omitempty"`
	Collection string `yaml:"collection,omitempty"`
}

// SessionConfig defines conversation memory behavior.
type SessionConfig struct {
	Store       string `yaml:"store,omitempty"` // "memory" | "sqlite"
	DBPath      string `yaml:"dbPath,omitempty"`
	MaxMessages int    `yaml:"maxMessages,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "debug" | "info" | "warn" | "error" | "fatal" | "silent"
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
}

// ConfigError reports a configuration problem.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
