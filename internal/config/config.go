// Package config loads and validates the central Tekton configuration: a
// YAML file overridden by environment variables, shared by the cmd/
// binaries registry-service, workflow-service, context-service and tekton.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP listen ports common to every service binary.
type ServerConfig struct {
	WebhookPort string `yaml:"webhook_port"`
	MetricsPort string `yaml:"metrics_port"`
}

// LLMConfig configures the pluggable LLM provider backing CI capabilities
// that require generation (summarize, analyze, suggest-fallback).
type LLMConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	Model          string        `yaml:"model"`
	Timeout        time.Duration `yaml:"-"`
	RetryCount     int           `yaml:"retry_count"`
	Provider       string        `yaml:"provider"`
	Temperature    float32       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	MaxContextSize int           `yaml:"max_context_size"`
	APIKey         string        `yaml:"-"` // never loaded from YAML; set via LLM_API_KEY
}

// RegistryConfig configures the Service Registry & Routing Fabric.
type RegistryConfig struct {
	Namespace string `yaml:"namespace"`
	Backend   string `yaml:"backend"` // "file" or "redis"
	PolicyDir string `yaml:"policy_dir"`
}

// OrchestrationConfig tunes the workflow scheduler's dispatch behavior.
type OrchestrationConfig struct {
	DryRun             bool          `yaml:"dry_run"`
	MaxConcurrentTasks int           `yaml:"max_concurrent_tasks"`
	CooldownPeriod     time.Duration `yaml:"-"`
}

// FilterConfig scopes which events a component reacts to.
type FilterConfig struct {
	Name       string              `yaml:"name"`
	Conditions map[string][]string `yaml:"conditions"`
}

// ContextConfig tunes the Context/Memory Management Core's budget engine.
type ContextConfig struct {
	Backend            string  `yaml:"backend"`
	TokenizerModel     string  `yaml:"tokenizer_model"`
	SoftThreshold      float64 `yaml:"soft_threshold"`
	SunsetThreshold    float64 `yaml:"sunset_threshold"`
	HardThreshold      float64 `yaml:"hard_threshold"`
	MaxInjectionTokens int     `yaml:"max_injection_tokens"`
	HardLimitTokens    int     `yaml:"hard_limit_tokens"`
}

// EmbeddingConfig selects and sizes the embedding generator backing
// Memory Catalog similarity search.
type EmbeddingConfig struct {
	Service   string `yaml:"service"` // "local" or a pluggable provider name
	Dimension int    `yaml:"dimension"`
}

// VectorDBConfig configures the Memory Catalog's vector store backend.
type VectorDBConfig struct {
	Enabled          bool            `yaml:"enabled"`
	Backend          string          `yaml:"backend"` // "memory" or "postgres"
	EmbeddingService EmbeddingConfig `yaml:"embedding_service"`
}

// LoggingConfig configures the shared logrus logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WebhookConfig configures the inbound webhook listener used by the
// workflow push protocol and external event sources.
type WebhookConfig struct {
	Port string `yaml:"port"`
	Path string `yaml:"path"`
}

// DatastorageConfig selects and configures the opaque document/KV backend
// ("Hermes database service" / "Engram memory store" in spec terms) used
// by the durable workflow repository and the context reconstruction
// client. Backend "http" talks to a remote datastorage.Client over HTTP;
// backend "postgres" uses the in-process sqlx/pgx repository directly.
type DatastorageConfig struct {
	Backend        string        `yaml:"backend"` // "http" or "postgres"
	BaseURL        string        `yaml:"base_url"`
	DSN            string        `yaml:"dsn"`
	RequestTimeout time.Duration `yaml:"-"`
	MaxConnections int           `yaml:"max_connections"`
	MigrationsDir  string        `yaml:"migrations_dir"`
}

// Config is the root configuration document.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	LLM           LLMConfig           `yaml:"llm"`
	Registry      RegistryConfig      `yaml:"registry"`
	Orchestration OrchestrationConfig `yaml:"orchestration"`
	Context       ContextConfig       `yaml:"context"`
	VectorDB      VectorDBConfig      `yaml:"vector_db"`
	Filters       []FilterConfig      `yaml:"filters"`
	Logging       LoggingConfig       `yaml:"logging"`
	Webhook       WebhookConfig       `yaml:"webhook"`
	Datastorage   DatastorageConfig   `yaml:"datastorage"`
}

// rawDurations mirrors the YAML fields whose Go type (time.Duration) can't
// be unmarshaled directly from a duration string like "30s" by yaml.v3.
type rawDurations struct {
	LLM struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"llm"`
	Orchestration struct {
		CooldownPeriod string `yaml:"cooldown_period"`
	} `yaml:"orchestration"`
	Datastorage struct {
		RequestTimeout string `yaml:"request_timeout"`
	} `yaml:"datastorage"`
}

func defaults() *Config {
	return &Config{
		Registry: RegistryConfig{
			Namespace: "default",
			Backend:   "file",
		},
		Orchestration: OrchestrationConfig{
			MaxConcurrentTasks: 5,
		},
		Context: ContextConfig{
			Backend:            "file",
			TokenizerModel:     "cl100k_base",
			SoftThreshold:      0.70,
			SunsetThreshold:    0.80,
			HardThreshold:      0.95,
			MaxInjectionTokens: 2000,
			HardLimitTokens:    100000,
		},
		LLM: LLMConfig{
			Provider: "anthropic",
		},
		VectorDB: VectorDBConfig{
			Enabled: true,
			Backend: "memory",
			EmbeddingService: EmbeddingConfig{
				Service:   "local",
				Dimension: 384,
			},
		},
		Datastorage: DatastorageConfig{
			Backend:        "postgres",
			RequestTimeout: 10 * time.Second,
			MaxConnections: 20,
			MigrationsDir:  "migrations",
		},
	}
}

// Load reads, parses, and validates the configuration file at path, then
// overlays environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaults()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	var raw rawDurations
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw.LLM.Timeout != "" {
		d, err := time.ParseDuration(raw.LLM.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		config.LLM.Timeout = d
	}
	if raw.Orchestration.CooldownPeriod != "" {
		d, err := time.ParseDuration(raw.Orchestration.CooldownPeriod)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		config.Orchestration.CooldownPeriod = d
	}
	if raw.Datastorage.RequestTimeout != "" {
		d, err := time.ParseDuration(raw.Datastorage.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		config.Datastorage.RequestTimeout = d
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func validate(config *Config) error {
	switch config.LLM.Provider {
	case "anthropic", "bedrock", "localai", "":
	default:
		return fmt.Errorf("unsupported LLM provider: %s", config.LLM.Provider)
	}

	if config.LLM.Provider == "localai" {
		if config.LLM.Endpoint == "" {
			config.LLM.Endpoint = "http://localhost:8080"
		}
		if config.LLM.Model == "" {
			return fmt.Errorf("LLM model is required for LocalAI provider")
		}
	}

	if config.LLM.Temperature < 0.0 || config.LLM.Temperature > 1.0 {
		return fmt.Errorf("LLM temperature must be between 0.0 and 1.0")
	}

	if config.LLM.MaxTokens != 0 && config.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM max tokens must be greater than 0")
	}

	if config.Registry.Namespace == "" {
		return fmt.Errorf("registry namespace is required")
	}

	if config.Orchestration.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("max concurrent tasks must be greater than 0")
	}

	switch config.Datastorage.Backend {
	case "postgres", "http", "":
	default:
		return fmt.Errorf("unsupported datastorage backend: %s", config.Datastorage.Backend)
	}

	return nil
}

func loadFromEnv(config *Config) error {
	if v := os.Getenv("LLM_ENDPOINT"); v != "" {
		config.LLM.Endpoint = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		config.LLM.Model = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		config.LLM.APIKey = v
	}
	if v := os.Getenv("WEBHOOK_PORT"); v != "" {
		config.Server.WebhookPort = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		config.Server.MetricsPort = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DRY_RUN value: %w", err)
		}
		config.Orchestration.DryRun = dryRun
	}
	if v := os.Getenv("TEKTON_MAX_INJECTION_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TEKTON_MAX_INJECTION_TOKENS value: %w", err)
		}
		config.Context.MaxInjectionTokens = n
	}
	if v := os.Getenv("TEKTON_CONTEXT_SUNSET_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TEKTON_CONTEXT_SUNSET_THRESHOLD value: %w", err)
		}
		config.Context.SunsetThreshold = f
	}
	if v := os.Getenv("TEKTON_HARD_LIMIT_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TEKTON_HARD_LIMIT_THRESHOLD value: %w", err)
		}
		config.Context.HardThreshold = f
	}
	if v := os.Getenv("TEKTON_DATASTORAGE_BACKEND"); v != "" {
		config.Datastorage.Backend = v
	}
	if v := os.Getenv("TEKTON_DATASTORAGE_URL"); v != "" {
		config.Datastorage.BaseURL = v
	}
	if v := os.Getenv("TEKTON_DATASTORAGE_DSN"); v != "" {
		config.Datastorage.DSN = v
	}
	return nil
}
