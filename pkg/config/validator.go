package config

import (
	"fmt"
	"net/url"

	"go.uber.org/zap/zapcore"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	add := func(field, message string) {
		errors = append(errors, ValidationError{Field: field, Message: message})
	}

	// LLM
	switch c.LLM.Provider {
	case "ollama":
		if c.LLM.BaseURL == "" {
			add("llm.base_url", "Ollama base URL is required")
		}
	case "openai":
		if c.LLM.APIKey == "" {
			add("llm.api_key", "api_key is required for the openai provider")
		}
	default:
		add("llm.provider", fmt.Sprintf("unknown provider %q", c.LLM.Provider))
	}

	if c.LLM.BaseURL != "" && !validURL(c.LLM.BaseURL) {
		add("llm.base_url", "invalid base URL")
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 32768 {
		add("llm.max_tokens", "max_tokens must be between 1 and 32768")
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature", "temperature must be between 0 and 2")
	}

	// Embedding
	switch c.Embedding.Provider {
	case "ollama", "hashing":
	case "openai":
		if c.Embedding.APIKey == "" {
			add("embedding.api_key", "api_key is required for the openai provider")
		}
	default:
		add("embedding.provider", fmt.Sprintf("unknown provider %q", c.Embedding.Provider))
	}

	if c.Embedding.Dimension < 0 {
		add("embedding.dimension", "dimension must not be negative")
	}

	// Search
	if !validURL(c.Search.BaseURL) {
		add("search.base_url", "invalid search URL")
	}
	if !validURL(c.Search.ResolveBase) {
		add("search.resolve_base", "invalid resolve base URL")
	}
	if c.Search.MaxDocuments < 1 || c.Search.MaxDocuments > 10 {
		add("search.max_documents", "max_documents must be between 1 and 10")
	}
	if c.Search.Workers < 1 {
		add("search.workers", "workers must be positive")
	}
	if c.Search.Timeout < 0 || c.Search.PageTimeout < 0 {
		add("search.timeout", "timeouts must not be negative")
	}

	// Retrieval
	if c.Retrieval.TopK < 1 || c.Retrieval.TopK > 10 {
		add("retrieval.top_k", "top_k must be between 1 and 10")
	}

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", "port must be between 1 and 65535")
	}

	// Jobs
	switch c.Jobs.Backend {
	case "memory":
	case "bolt":
		if c.Jobs.Path == "" {
			add("jobs.path", "path is required for the bolt backend")
		}
	case "postgres":
		if c.Jobs.DatabaseURL == "" {
			add("jobs.database_url", "database_url is required for the postgres backend")
		} else if _, err := url.Parse(c.Jobs.DatabaseURL); err != nil {
			add("jobs.database_url", "invalid database URL")
		}
	default:
		add("jobs.backend", fmt.Sprintf("unknown backend %q", c.Jobs.Backend))
	}
	if c.Jobs.Workers < 1 {
		add("jobs.workers", "workers must be positive")
	}

	// Cache
	if c.Cache.Enabled && c.Cache.RedisURL == "" {
		add("cache.redis_url", "redis_url is required when the cache is enabled")
	}

	// Log
	switch c.Log.Env {
	case "prod", "dev", "local":
	default:
		add("log.env", fmt.Sprintf("unknown env %q", c.Log.Env))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		add("log.level", fmt.Sprintf("unknown level %q", c.Log.Level))
	}

	return errors
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
