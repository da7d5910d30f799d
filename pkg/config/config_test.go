package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"OLLAMA_BASE_URL", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"DATABASE_URL", "REDIS_URL", "PORT", "SEEK_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)

	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  provider: "openai"
  model: "gpt-4o-mini"
  api_key: "sk-test"
  max_tokens: 1000
  temperature: 0.2
  timeout: 30s

embedding:
  provider: "hashing"
  dimension: 256

search:
  page_timeout: 3s
  max_documents: 5
  rate_limit: 2.5

retrieval:
  top_k: 4

server:
  port: 9090
  allowed_origins:
    - "https://seek.example.com"

jobs:
  backend: "bolt"
  path: "/var/lib/seek/jobs.db"

cache:
  enabled: true
  redis_url: "redis://localhost:6379/0"

log:
  env: "dev"
  level: "debug"
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", config.LLM.Model)
	assert.Equal(t, "", config.LLM.BaseURL)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.2, config.LLM.Temperature)
	assert.Equal(t, 30*time.Second, config.LLM.Timeout)

	assert.Equal(t, "hashing", config.Embedding.Provider)
	assert.Equal(t, 256, config.Embedding.Dimension)
	assert.Equal(t, 30*time.Second, config.Embedding.Timeout)

	assert.Equal(t, 3*time.Second, config.Search.PageTimeout)
	assert.Equal(t, 10*time.Second, config.Search.Timeout)
	assert.Equal(t, 5, config.Search.MaxDocuments)
	assert.Equal(t, 2.5, config.Search.RateLimit)
	assert.Equal(t, "https://en.wikipedia.org/w/index.php", config.Search.BaseURL)

	assert.Equal(t, 4, config.Retrieval.TopK)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, []string{"https://seek.example.com"}, config.Server.AllowedOrigins)
	assert.Equal(t, "bolt", config.Jobs.Backend)
	assert.Equal(t, "/var/lib/seek/jobs.db", config.Jobs.Path)
	assert.True(t, config.Cache.Enabled)
	assert.Equal(t, "dev", config.Log.Env)

	assert.Empty(t, config.Validate())
}

func TestDefaultConfig(t *testing.T) {
	clearEnv(t)

	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, 0.0, config.LLM.Temperature)
	assert.Equal(t, "ollama", config.Embedding.Provider)
	assert.Equal(t, "http://localhost:11434", config.Embedding.BaseURL)
	assert.Equal(t, "li.mw-search-result a", config.Search.ResultSelector)
	assert.Equal(t, "Mozilla/5.0", config.Search.UserAgent)
	assert.Equal(t, 10, config.Search.MaxDocuments)
	assert.Equal(t, 3, config.Retrieval.TopK)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, []string{"*"}, config.Server.AllowedOrigins)
	assert.Equal(t, "memory", config.Jobs.Backend)
	assert.False(t, config.Cache.Enabled)
	assert.False(t, config.Tracing.Enabled)
	assert.Equal(t, "info", config.Log.Level)
	assert.False(t, config.LogLevelSet())

	assert.Empty(t, config.Validate())
}

func TestLogLevelSet(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644))
	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", config.Log.Level)
	assert.True(t, config.LogLevelSet())

	t.Setenv("SEEK_LOG_LEVEL", "error")
	config, err = getDefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, "error", config.Log.Level)
	assert.True(t, config.LogLevelSet())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [not a map"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		config := &Config{}
		applyDefaults(config)
		return config
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name: "invalid llm",
			mutate: func(c *Config) {
				c.LLM.BaseURL = "invalid-url"
				c.LLM.MaxTokens = 50000
				c.LLM.Temperature = 3.0
			},
			fields: []string{"llm.base_url", "llm.max_tokens", "llm.temperature"},
		},
		{
			name: "openai without key",
			mutate: func(c *Config) {
				c.LLM.Provider = "openai"
				c.LLM.BaseURL = ""
				c.Embedding.Provider = "openai"
			},
			fields: []string{"llm.api_key", "embedding.api_key"},
		},
		{
			name: "unknown providers",
			mutate: func(c *Config) {
				c.LLM.Provider = "bard"
				c.Embedding.Provider = "word2vec"
			},
			fields: []string{"llm.provider", "embedding.provider"},
		},
		{
			name: "corpus and retrieval bounds",
			mutate: func(c *Config) {
				c.Search.MaxDocuments = 11
				c.Retrieval.TopK = 0
				c.Search.Workers = 0
			},
			fields: []string{"search.max_documents", "search.workers", "retrieval.top_k"},
		},
		{
			name: "backends",
			mutate: func(c *Config) {
				c.Jobs.Backend = "postgres"
				c.Cache.Enabled = true
				c.Server.Port = 70000
			},
			fields: []string{"server.port", "jobs.database_url", "cache.redis_url"},
		},
		{
			name: "logging",
			mutate: func(c *Config) {
				c.Log.Env = "staging"
				c.Log.Level = "loud"
			},
			fields: []string{"log.env", "log.level"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)

			errors := config.Validate()
			fields := make([]string, len(errors))
			for i, e := range errors {
				fields[i] = e.Field
			}
			if tt.fields == nil {
				assert.Empty(t, fields)
				return
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("REDIS_URL", "redis://env-redis:6379/1")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("PORT", "3000")
	t.Setenv("SEEK_LOG_LEVEL", "warn")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Jobs.DatabaseURL)
	assert.Equal(t, "redis://env-redis:6379/1", config.Cache.RedisURL)
	assert.Equal(t, "sk-env", config.LLM.APIKey)
	assert.Equal(t, 3000, config.Server.Port)
	assert.Equal(t, "warn", config.Log.Level)

	applyDefaults(config)
	assert.Equal(t, "http://env-ollama:11434", config.Embedding.BaseURL)
}

func TestEnvironmentOverridesOpenAI(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_BASE_URL", "http://gateway:8000/v1")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	config := &Config{}
	config.LLM.Provider = "openai"
	config.Embedding.Provider = "openai"
	mergeWithEnv(config)

	assert.Equal(t, "http://gateway:8000/v1", config.LLM.BaseURL)
	assert.Equal(t, "http://gateway:8000/v1", config.Embedding.BaseURL)
	assert.Equal(t, "sk-env", config.Embedding.APIKey)
}
