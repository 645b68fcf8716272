// Package config loads service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	History   HistoryConfig   `yaml:"history"`
	Cache     CacheConfig     `yaml:"cache"`
	Routing   RoutingConfig   `yaml:"routing"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// OllamaConfig holds the model backend settings.
type OllamaConfig struct {
	BaseURL     string `yaml:"base_url"`
	ChatModel   string `yaml:"chat_model"`
	VisionModel string `yaml:"vision_model"`
}

// KnowledgeConfig holds the retrieval corpus settings. An empty Dir means
// the built-in seed corpus; Watch enables hot reload of Dir.
type KnowledgeConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// HistoryConfig holds the conversation store settings. An empty Path selects
// the in-memory store.
type HistoryConfig struct {
	Path     string `yaml:"path"`
	MaxTurns int    `yaml:"max_turns"`
}

// CacheConfig holds the plan cache settings. An empty Path selects the
// in-memory cache.
type CacheConfig struct {
	Path string        `yaml:"path"`
	TTL  time.Duration `yaml:"ttl"`
}

// RoutingConfig holds the pipeline tunables.
type RoutingConfig struct {
	HistoryWindow  int           `yaml:"history_window"`
	RetrievalTopK  int           `yaml:"retrieval_top_k"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Ollama: OllamaConfig{
			BaseURL:     "http://localhost:11434",
			ChatModel:   "llama3.2",
			VisionModel: "llava",
		},
		History: HistoryConfig{
			MaxTurns: 50,
		},
		Cache: CacheConfig{
			TTL: time.Hour,
		},
		Routing: RoutingConfig{
			HistoryWindow:  4,
			RetrievalTopK:  3,
			ProcessTimeout: time.Minute,
		},
	}
}

// Load reads the configuration file at path, layers environment overrides on
// top, and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv layers AGENTROUTE_* environment variables over the file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("AGENTROUTE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("AGENTROUTE_OLLAMA_URL"); v != "" {
		cfg.Ollama.BaseURL = v
	}
	if v := os.Getenv("AGENTROUTE_CHAT_MODEL"); v != "" {
		cfg.Ollama.ChatModel = v
	}
	if v := os.Getenv("AGENTROUTE_VISION_MODEL"); v != "" {
		cfg.Ollama.VisionModel = v
	}
	if v := os.Getenv("AGENTROUTE_KNOWLEDGE_DIR"); v != "" {
		cfg.Knowledge.Dir = v
	}
	if v := os.Getenv("AGENTROUTE_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("AGENTROUTE_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Routing.RetrievalTopK = k
		}
	}
	if v := os.Getenv("AGENTROUTE_HISTORY_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Routing.HistoryWindow = n
		}
	}
}

func (c Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Routing.RetrievalTopK <= 0 {
		return fmt.Errorf("routing.retrieval_top_k must be positive, got %d", c.Routing.RetrievalTopK)
	}
	if c.Routing.HistoryWindow <= 0 {
		return fmt.Errorf("routing.history_window must be positive, got %d", c.Routing.HistoryWindow)
	}
	if c.History.MaxTurns <= 0 {
		return fmt.Errorf("history.max_turns must be positive, got %d", c.History.MaxTurns)
	}
	return nil
}
