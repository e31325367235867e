package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "PAPER_RADAR_CONFIG"
	databasePathEnv = "PAPER_RADAR_DB"
	openAIKeyEnv    = "OPENAI_API_KEY"
	openAIModelEnv  = "OPENAI_MODEL"
	listenAddrEnv   = "PAPER_RADAR_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Sources   []SourceConfig  `yaml:"sources"`
}

// DatabaseConfig describes the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig defines the two independent job periods and the poll
// cadence of the timer loop.
type SchedulerConfig struct {
	CollectionInterval time.Duration `yaml:"collectionInterval"`
	ProcessingInterval time.Duration `yaml:"processingInterval"`
	PollInterval       time.Duration `yaml:"pollInterval"`
}

// PipelineConfig tunes the enrichment batch behaviour.
type PipelineConfig struct {
	BatchLimit int           `yaml:"batchLimit"`
	PaperDelay time.Duration `yaml:"paperDelay"`
}

// OpenAIConfig defines how to reach the text and embedding capabilities.
type OpenAIConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embeddingModel"`
	Dimensions     int    `yaml:"dimensions"`
	APIKey         string `yaml:"apiKey"`
	SystemPrompt   string `yaml:"systemPrompt"`
}

// ServerConfig holds the HTTP API listen address.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SourceConfig describes a single paper source with its collector strategy.
type SourceConfig struct {
	Name       string   `yaml:"name"`
	Collector  string   `yaml:"collector"`
	URL        string   `yaml:"url"`
	Categories []string `yaml:"categories"`
	Topics     []string `yaml:"topics"`
	MaxResults int      `yaml:"maxResults"`
	SinceDays  int      `yaml:"sinceDays"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}

	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.Addr = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Scheduler.CollectionInterval > 0 {
		base.Scheduler.CollectionInterval = override.Scheduler.CollectionInterval
	}
	if override.Scheduler.ProcessingInterval > 0 {
		base.Scheduler.ProcessingInterval = override.Scheduler.ProcessingInterval
	}
	if override.Scheduler.PollInterval > 0 {
		base.Scheduler.PollInterval = override.Scheduler.PollInterval
	}

	if override.Pipeline.BatchLimit > 0 {
		base.Pipeline.BatchLimit = override.Pipeline.BatchLimit
	}
	if override.Pipeline.PaperDelay > 0 {
		base.Pipeline.PaperDelay = override.Pipeline.PaperDelay
	}

	if override.OpenAI.Endpoint != "" {
		base.OpenAI.Endpoint = override.OpenAI.Endpoint
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.EmbeddingModel != "" {
		base.OpenAI.EmbeddingModel = override.OpenAI.EmbeddingModel
	}
	if override.OpenAI.Dimensions > 0 {
		base.OpenAI.Dimensions = override.OpenAI.Dimensions
	}
	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}
	if override.OpenAI.SystemPrompt != "" {
		base.OpenAI.SystemPrompt = override.OpenAI.SystemPrompt
	}

	if override.Server.Addr != "" {
		base.Server = override.Server
	}

	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Path: "data/research.db"},
		Scheduler: SchedulerConfig{
			CollectionInterval: 24 * time.Hour,
			ProcessingInterval: 6 * time.Hour,
			PollInterval:       time.Second,
		},
		Pipeline: PipelineConfig{
			BatchLimit: 10,
			PaperDelay: 2 * time.Second,
		},
		OpenAI: OpenAIConfig{
			Endpoint:       "https://api.openai.com/v1",
			Model:          "gpt-4o",
			EmbeddingModel: "text-embedding-3-large",
			Dimensions:     3072,
			APIKey:         "",
			SystemPrompt:   "You are an expert in ESG and Finance research analyzing academic papers.",
		},
		Server:  ServerConfig{Addr: ":5001"},
		Logging: LoggingConfig{Level: "info"},
		Sources: []SourceConfig{
			{
				Name:       "arxiv",
				Collector:  "arxiv",
				URL:        "https://export.arxiv.org/api/query",
				Categories: []string{"q-fin", "econ", "stat.AP"},
				MaxResults: 50,
				SinceDays:  7,
			},
			{
				Name:      "ssrn",
				Collector: "ssrn",
				URL:       "https://www.ssrn.com",
				Topics:    []string{"ESG", "Sustainable Finance", "Climate Finance"},
				SinceDays: 7,
			},
		},
	}
}
