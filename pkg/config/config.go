package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		Provider    string        `yaml:"provider"`
		BaseURL     string        `yaml:"base_url"`
		Model       string        `yaml:"model"`
		APIKey      string        `yaml:"api_key"`
		MaxTokens   int           `yaml:"max_tokens"`
		Temperature float64       `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"llm"`

	Embedding struct {
		Provider  string        `yaml:"provider"`
		BaseURL   string        `yaml:"base_url"`
		Model     string        `yaml:"model"`
		APIKey    string        `yaml:"api_key"`
		Dimension int           `yaml:"dimension"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"embedding"`

	Search struct {
		BaseURL        string        `yaml:"base_url"`
		ResolveBase    string        `yaml:"resolve_base"`
		ResultSelector string        `yaml:"result_selector"`
		UserAgent      string        `yaml:"user_agent"`
		Timeout        time.Duration `yaml:"timeout"`
		PageTimeout    time.Duration `yaml:"page_timeout"`
		MaxDocuments   int           `yaml:"max_documents"`
		Workers        int           `yaml:"workers"`
		RateLimit      float64       `yaml:"rate_limit"`
	} `yaml:"search"`

	Retrieval struct {
		TopK int `yaml:"top_k"`
	} `yaml:"retrieval"`

	Server struct {
		Port           int           `yaml:"port"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`

	Jobs struct {
		Backend     string        `yaml:"backend"`
		Path        string        `yaml:"path"`
		DatabaseURL string        `yaml:"database_url"`
		TableName   string        `yaml:"table_name"`
		Workers     int           `yaml:"workers"`
		Timeout     time.Duration `yaml:"timeout"`
		TTL         time.Duration `yaml:"ttl"`
	} `yaml:"jobs"`

	Cache struct {
		Enabled  bool          `yaml:"enabled"`
		RedisURL string        `yaml:"redis_url"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Log struct {
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"log"`

	Tracing struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"tracing"`

	logLevelSet bool
}

// LogLevelSet reports whether log.level came from the file or the
// environment rather than from defaults.
func (c *Config) LogLevelSet() bool {
	return c.logLevelSet
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/seek/config.yaml"),
			"/etc/seek/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.Model == "" && config.LLM.Provider == "ollama" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = 60 * time.Second
	}

	if config.Embedding.Provider == "" {
		config.Embedding.Provider = config.LLM.Provider
	}
	if config.Embedding.BaseURL == "" && config.Embedding.Provider == config.LLM.Provider {
		config.Embedding.BaseURL = config.LLM.BaseURL
	}
	if config.Embedding.APIKey == "" && config.Embedding.Provider == config.LLM.Provider {
		config.Embedding.APIKey = config.LLM.APIKey
	}
	if config.Embedding.Timeout == 0 {
		config.Embedding.Timeout = 30 * time.Second
	}

	if config.Search.BaseURL == "" {
		config.Search.BaseURL = "https://en.wikipedia.org/w/index.php"
	}
	if config.Search.ResolveBase == "" {
		config.Search.ResolveBase = "https://en.wikipedia.org/"
	}
	if config.Search.ResultSelector == "" {
		config.Search.ResultSelector = "li.mw-search-result a"
	}
	if config.Search.UserAgent == "" {
		config.Search.UserAgent = "Mozilla/5.0"
	}
	if config.Search.Timeout == 0 {
		config.Search.Timeout = 10 * time.Second
	}
	if config.Search.PageTimeout == 0 {
		config.Search.PageTimeout = 5 * time.Second
	}
	if config.Search.MaxDocuments == 0 {
		config.Search.MaxDocuments = 10
	}
	if config.Search.Workers == 0 {
		config.Search.Workers = 4
	}
	if config.Search.RateLimit == 0 {
		config.Search.RateLimit = 10
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 3
	}

	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"*"}
	}
	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = 2 * time.Minute
	}

	if config.Jobs.Backend == "" {
		config.Jobs.Backend = "memory"
	}
	if config.Jobs.Path == "" {
		config.Jobs.Path = "seek-jobs.db"
	}
	if config.Jobs.TableName == "" {
		config.Jobs.TableName = "seek_jobs"
	}
	if config.Jobs.Workers == 0 {
		config.Jobs.Workers = 8
	}
	if config.Jobs.Timeout == 0 {
		config.Jobs.Timeout = 2 * time.Minute
	}
	if config.Jobs.TTL == 0 {
		config.Jobs.TTL = time.Hour
	}

	if config.Cache.TTL == 0 {
		config.Cache.TTL = 24 * time.Hour
	}

	if config.Log.Env == "" {
		config.Log.Env = "prod"
	}
	config.logLevelSet = config.Log.Level != ""
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		if config.LLM.Provider == "" || config.LLM.Provider == "ollama" {
			config.LLM.BaseURL = baseURL
		}
		if config.Embedding.Provider == "ollama" {
			config.Embedding.BaseURL = baseURL
		}
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		if config.LLM.Provider == "openai" {
			config.LLM.BaseURL = baseURL
		}
		if config.Embedding.Provider == "openai" {
			config.Embedding.BaseURL = baseURL
		}
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.LLM.APIKey == "" {
			config.LLM.APIKey = apiKey
		}
		if config.Embedding.APIKey == "" && config.Embedding.Provider == "openai" {
			config.Embedding.APIKey = apiKey
		}
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Jobs.DatabaseURL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.Cache.RedisURL = redisURL
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("SEEK_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}
