package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Unexpected default addr: %s", cfg.Server.Addr)
	}
	if cfg.Routing.RetrievalTopK != 3 {
		t.Errorf("Unexpected default top k: %d", cfg.Routing.RetrievalTopK)
	}
	if cfg.Routing.HistoryWindow != 4 {
		t.Errorf("Unexpected default history window: %d", cfg.Routing.HistoryWindow)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9999"
ollama:
  chat_model: mistral
routing:
  retrieval_top_k: 5
  process_timeout: 30s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":9999" {
		t.Errorf("File value not applied: %s", cfg.Server.Addr)
	}
	if cfg.Ollama.ChatModel != "mistral" {
		t.Errorf("File value not applied: %s", cfg.Ollama.ChatModel)
	}
	if cfg.Routing.RetrievalTopK != 5 {
		t.Errorf("File value not applied: %d", cfg.Routing.RetrievalTopK)
	}
	if cfg.Routing.ProcessTimeout != 30*time.Second {
		t.Errorf("File value not applied: %v", cfg.Routing.ProcessTimeout)
	}
	// Untouched keys keep their defaults.
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Default lost: %s", cfg.Ollama.BaseURL)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9999\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AGENTROUTE_ADDR", ":7777")
	t.Setenv("AGENTROUTE_TOP_K", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":7777" {
		t.Errorf("Env override not applied: %s", cfg.Server.Addr)
	}
	if cfg.Routing.RetrievalTopK != 7 {
		t.Errorf("Env override not applied: %d", cfg.Routing.RetrievalTopK)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("routing:\n  retrieval_top_k: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected validation error for negative top k")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}
