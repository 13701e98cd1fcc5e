package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/vdemy/supportmem-go/pkg/embedder"
	embeddergemini "github.com/vdemy/supportmem-go/pkg/embedder/gemini"
	embedderopenai "github.com/vdemy/supportmem-go/pkg/embedder/openai"
	"github.com/vdemy/supportmem-go/pkg/llm"
	llmgemini "github.com/vdemy/supportmem-go/pkg/llm/gemini"
	llmopenai "github.com/vdemy/supportmem-go/pkg/llm/openai"
	"github.com/vdemy/supportmem-go/pkg/vectorstore"
	"github.com/vdemy/supportmem-go/pkg/vectorstore/chromem"
	"github.com/vdemy/supportmem-go/pkg/vectorstore/postgres"
	"github.com/vdemy/supportmem-go/pkg/vectorstore/sqlite"
)

// Supported provider and store identifiers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreChromem  = "chromem"
)

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider   string `json:"provider"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
	BaseURL    string `json:"base_url"`
	Dimensions int    `json:"dimensions"`
}

// LLMConfig selects and configures the text-generation provider.
type LLMConfig struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
}

// StorageConfig selects and configures the vector store backend.
type StorageConfig struct {
	Backend        string `json:"backend"`
	CollectionName string `json:"collection_name"`

	// SQLite and chromem.
	Path string `json:"path"`

	// Postgres.
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// Config is the top-level agent configuration.
type Config struct {
	Embedder EmbedderConfig `json:"embedder"`
	LLM      LLMConfig      `json:"llm"`
	Storage  StorageConfig  `json:"storage"`

	// Timeout bounds each external call made during a turn.
	Timeout time.Duration `json:"timeout"`

	// Retention is how long conversation memories are kept before the
	// background sweeper removes them. Zero disables sweeping.
	Retention time.Duration `json:"retention"`

	// SweepInterval is how often the sweeper runs.
	SweepInterval time.Duration `json:"sweep_interval"`

	// RecallLimit is how many semantically relevant memories feed the
	// prompt context.
	RecallLimit int `json:"recall_limit"`

	// RecentLimit is how many recent turns feed the prompt context.
	RecentLimit int `json:"recent_limit"`

	// RecommendLimit is how many courses a recommendation turn offers.
	RecommendLimit int `json:"recommend_limit"`
}

// DefaultConfig returns a configuration with sensible defaults:
// OpenAI providers, SQLite storage, and a 15s per-call timeout.
func DefaultConfig() *Config {
	return &Config{
		Embedder: EmbedderConfig{
			Provider:   ProviderOpenAI,
			Dimensions: 768,
		},
		LLM: LLMConfig{
			Provider: ProviderOpenAI,
		},
		Storage: StorageConfig{
			Backend:        StoreSQLite,
			CollectionName: "customer_support",
			Path:           "supportmem.db",
		},
		Timeout:        15 * time.Second,
		SweepInterval:  time.Hour,
		RecallLimit:    3,
		RecentLimit:    5,
		RecommendLimit: 5,
	}
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// A .env file in the working directory is loaded first when present.
// Unset variables keep their defaults.
func LoadConfigFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if v := os.Getenv("SUPPORTMEM_EMBEDDER_PROVIDER"); v != "" {
		cfg.Embedder.Provider = v
	}
	if v := os.Getenv("SUPPORTMEM_EMBEDDER_API_KEY"); v != "" {
		cfg.Embedder.APIKey = v
	}
	if v := os.Getenv("SUPPORTMEM_EMBEDDER_MODEL"); v != "" {
		cfg.Embedder.Model = v
	}
	if v := os.Getenv("SUPPORTMEM_EMBEDDER_BASE_URL"); v != "" {
		cfg.Embedder.BaseURL = v
	}
	if v := os.Getenv("SUPPORTMEM_EMBEDDER_DIMENSIONS"); v != "" {
		dims, err := strconv.Atoi(v)
		if err != nil {
			return nil, NewAgentError("load config", fmt.Errorf("%w: invalid dimensions %q", ErrInvalidConfig, v))
		}
		cfg.Embedder.Dimensions = dims
	}

	if v := os.Getenv("SUPPORTMEM_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("SUPPORTMEM_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("SUPPORTMEM_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SUPPORTMEM_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}

	if v := os.Getenv("SUPPORTMEM_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("SUPPORTMEM_STORAGE_COLLECTION"); v != "" {
		cfg.Storage.CollectionName = v
	}
	if v := os.Getenv("SUPPORTMEM_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("SUPPORTMEM_STORAGE_HOST"); v != "" {
		cfg.Storage.Host = v
	}
	if v := os.Getenv("SUPPORTMEM_STORAGE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, NewAgentError("load config", fmt.Errorf("%w: invalid port %q", ErrInvalidConfig, v))
		}
		cfg.Storage.Port = port
	}
	if v := os.Getenv("SUPPORTMEM_STORAGE_USER"); v != "" {
		cfg.Storage.User = v
	}
	if v := os.Getenv("SUPPORTMEM_STORAGE_PASSWORD"); v != "" {
		cfg.Storage.Password = v
	}
	if v := os.Getenv("SUPPORTMEM_STORAGE_DBNAME"); v != "" {
		cfg.Storage.DBName = v
	}
	if v := os.Getenv("SUPPORTMEM_STORAGE_SSLMODE"); v != "" {
		cfg.Storage.SSLMode = v
	}

	if v := os.Getenv("SUPPORTMEM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, NewAgentError("load config", fmt.Errorf("%w: invalid timeout %q", ErrInvalidConfig, v))
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("SUPPORTMEM_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, NewAgentError("load config", fmt.Errorf("%w: invalid retention %q", ErrInvalidConfig, v))
		}
		cfg.Retention = d
	}
	if v := os.Getenv("SUPPORTMEM_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, NewAgentError("load config", fmt.Errorf("%w: invalid sweep interval %q", ErrInvalidConfig, v))
		}
		cfg.SweepInterval = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromJSON loads configuration from a JSON file, applying
// defaults for any omitted fields.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewAgentError("load config", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, NewAgentError("load config", fmt.Errorf("%w: %v", ErrInvalidConfig, err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for unsupported selections.
func (c *Config) Validate() error {
	switch c.Embedder.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return NewAgentError("validate config", fmt.Errorf("%w: unsupported embedder provider %q", ErrInvalidConfig, c.Embedder.Provider))
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return NewAgentError("validate config", fmt.Errorf("%w: unsupported llm provider %q", ErrInvalidConfig, c.LLM.Provider))
	}

	switch c.Storage.Backend {
	case StoreSQLite, StorePostgres, StoreChromem:
	default:
		return NewAgentError("validate config", fmt.Errorf("%w: unsupported storage backend %q", ErrInvalidConfig, c.Storage.Backend))
	}

	if c.Embedder.Dimensions <= 0 {
		return NewAgentError("validate config", fmt.Errorf("%w: embedder dimensions must be positive", ErrInvalidConfig))
	}
	if c.Timeout <= 0 {
		return NewAgentError("validate config", fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig))
	}

	return nil
}

// buildEmbedder creates the configured embedding provider.
func buildEmbedder(ctx context.Context, cfg *Config) (embedder.Provider, error) {
	switch cfg.Embedder.Provider {
	case ProviderOpenAI:
		return embedderopenai.NewClient(&embedderopenai.Config{
			APIKey:     cfg.Embedder.APIKey,
			Model:      cfg.Embedder.Model,
			BaseURL:    cfg.Embedder.BaseURL,
			Dimensions: cfg.Embedder.Dimensions,
		})
	case ProviderGemini:
		return embeddergemini.NewClient(ctx, &embeddergemini.Config{
			APIKey:     cfg.Embedder.APIKey,
			Model:      cfg.Embedder.Model,
			Dimensions: cfg.Embedder.Dimensions,
		})
	default:
		return nil, NewAgentError("build embedder", fmt.Errorf("%w: unsupported provider %q", ErrInvalidConfig, cfg.Embedder.Provider))
	}
}

// buildLLM creates the configured text-generation provider.
func buildLLM(ctx context.Context, cfg *Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case ProviderOpenAI:
		return llmopenai.NewClient(&llmopenai.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		})
	case ProviderGemini:
		return llmgemini.NewClient(ctx, &llmgemini.Config{
			APIKey: cfg.LLM.APIKey,
			Model:  cfg.LLM.Model,
		})
	default:
		return nil, NewAgentError("build llm", fmt.Errorf("%w: unsupported provider %q", ErrInvalidConfig, cfg.LLM.Provider))
	}
}

// buildStorage creates the configured vector store backend.
func buildStorage(cfg *Config) (vectorstore.Store, error) {
	switch cfg.Storage.Backend {
	case StoreSQLite:
		return sqlite.NewClient(&sqlite.Config{
			DBPath:         cfg.Storage.Path,
			CollectionName: cfg.Storage.CollectionName,
			Dimensions:     cfg.Embedder.Dimensions,
		})
	case StorePostgres:
		return postgres.NewClient(&postgres.Config{
			Host:           cfg.Storage.Host,
			Port:           cfg.Storage.Port,
			User:           cfg.Storage.User,
			Password:       cfg.Storage.Password,
			DBName:         cfg.Storage.DBName,
			CollectionName: cfg.Storage.CollectionName,
			Dimensions:     cfg.Embedder.Dimensions,
			SSLMode:        cfg.Storage.SSLMode,
		})
	case StoreChromem:
		return chromem.NewClient(&chromem.Config{
			CollectionName: cfg.Storage.CollectionName,
			PersistPath:    cfg.Storage.Path,
		})
	default:
		return nil, NewAgentError("build storage", fmt.Errorf("%w: unsupported backend %q", ErrInvalidConfig, cfg.Storage.Backend))
	}
}
