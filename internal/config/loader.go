package config

import (
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so API keys can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.LLM.APIKey = expandEnvVars(cfg.LLM.APIKey)
	cfg.LLM.Azure.APIKey = expandEnvVars(cfg.LLM.Azure.APIKey)
	cfg.LLM.Azure.Endpoint = expandEnvVars(cfg.LLM.Azure.Endpoint)
}

// Load reads the config file, applies defaults and environment overrides,
// and returns a merged Config. A missing file produces defaults plus
// environment overrides only.
func Load(path string) (Config, error) {
	cfg := Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(&cfg)
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// applyDefaults fills zero-value fields with sensible defaults. The defaults
// mirror the original service: port 8084, plain service-discovery hostnames
// for the downstream services, and a ./vectorstore index directory.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8084
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = "lan"
	}
	if cfg.Server.AllowedOrigins == nil {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.Embedding == "" {
		cfg.LLM.Embedding = "text-embedding-ada-002"
	}
	if cfg.LLM.Azure.Deployment == "" {
		cfg.LLM.Azure.Deployment = "gpt-4o"
	}
	if cfg.LLM.Azure.EmbeddingDeployment == "" {
		cfg.LLM.Azure.EmbeddingDeployment = "text-embedding-ada-002"
	}
	if cfg.LLM.Azure.APIVersion == "" {
		cfg.LLM.Azure.APIVersion = "2024-02-15-preview"
	}
	if cfg.Services.CustomersURL == "" {
		cfg.Services.CustomersURL = "http://customers-service"
	}
	if cfg.Services.VetsURL == "" {
		cfg.Services.VetsURL = "http://vets-service"
	}
	if cfg.Services.TimeoutSeconds == 0 {
		cfg.Services.TimeoutSeconds = 30
	}
	if cfg.VectorStore.Dir == "" {
		cfg.VectorStore.Dir = "./vectorstore"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "vets_collection"
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = "memory"
	}
	if cfg.Session.MaxMessages == 0 {
		cfg.Session.MaxMessages = 50
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = "pretty"
	}
}

// applyEnvOverrides maps the well-known environment variables of the
// original service onto the config. Environment values win over file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("AZURE_OPENAI_KEY"); v != "" {
		cfg.LLM.Azure.APIKey = v
	}
	if v := os.Getenv("AZURE_OPENAI_ENDPOINT"); v != "" {
		cfg.LLM.Azure.Endpoint = v
	}
	if v := os.Getenv("AZURE_OPENAI_DEPLOYMENT"); v != "" {
		cfg.LLM.Azure.Deployment = v
	}
	if v := os.Getenv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT"); v != "" {
		cfg.LLM.Azure.EmbeddingDeployment = v
	}
	if v := os.Getenv("CUSTOMERS_SERVICE_URL"); v != "" {
		cfg.Services.CustomersURL = v
	}
	if v := os.Getenv("VETS_SERVICE_URL"); v != "" {
		cfg.Services.VetsURL = v
	}
}
