package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the document QA tool.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// ChunkingConfig holds document splitting configuration.
type ChunkingConfig struct {
	Size    int `yaml:"size"`    // characters per chunk
	Overlap int `yaml:"overlap"` // characters shared between neighbors
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`    // "ollama", "openai", "mock"
	Model          string `yaml:"model"`       // e.g., "nomic-embed-text"
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"` // Environment variable for API key
	Dimension      int    `yaml:"dimension"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LLMConfig holds generation configuration.
type LLMConfig struct {
	Model          string  `yaml:"model"`
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// StoreConfig holds vector store configuration.
type StoreConfig struct {
	Dir        string `yaml:"dir"`
	Collection string `yaml:"collection"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float64 `yaml:"score_threshold"` // Filter vector results below this score
	VectorWeight   float64 `yaml:"vector_weight"`   // Fusion weight of the vector ranking
	RRFK           int     `yaml:"rrf_k"`
}

// IngestConfig holds ingestion configuration.
type IngestConfig struct {
	Includes  []string `yaml:"includes"`
	Excludes  []string `yaml:"excludes"`
	MaxFileMB int64    `yaml:"max_file_mb"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			Model:          "nomic-embed-text",
			BaseURL:        "http://localhost:11434/v1",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      768,
			TimeoutSeconds: 60,
		},
		LLM: LLMConfig{
			Model:          "llama3.1:8b",
			BaseURL:        "http://localhost:11434/v1",
			APIKeyEnv:      "OPENAI_API_KEY",
			Temperature:    0.8,
			MaxTokens:      1024,
			TimeoutSeconds: 120,
		},
		Store: StoreConfig{
			Dir:        "data",
			Collection: "document_collection",
		},
		Retrieve: RetrieveConfig{
			TopK:           16,
			ScoreThreshold: 0.3,
			VectorWeight:   0.6,
			RRFK:           60,
		},
		Ingest: IngestConfig{
			Includes:  []string{"**/*.txt", "**/*.md", "**/*.csv", "**/*.vtt", "**/*.srt"},
			Excludes:  []string{"**/.*/**", "**/node_modules/**", "**/vendor/**"},
			MaxFileMB: 10,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docqa.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docqa.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docqa", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DocumentDBPath returns the path to the document metadata database.
func DocumentDBPath(dir string) string {
	return filepath.Join(dir, "documents.db")
}

// EmbeddingTimeout returns the embedding request timeout as a duration.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSeconds) * time.Second
}

// LLMTimeout returns the generation request timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// MaxFileBytes returns the ingestion file size limit in bytes.
func (c *Config) MaxFileBytes() int64 {
	return c.Ingest.MaxFileMB << 20
}
