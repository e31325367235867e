package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Database.Path != "data/research.db" {
		t.Fatalf("unexpected database path %q", cfg.Database.Path)
	}
	if cfg.Scheduler.CollectionInterval != 24*time.Hour || cfg.Scheduler.ProcessingInterval != 6*time.Hour {
		t.Fatalf("unexpected scheduler defaults %+v", cfg.Scheduler)
	}
	if cfg.Pipeline.BatchLimit != 10 {
		t.Fatalf("unexpected batch limit %d", cfg.Pipeline.BatchLimit)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("expected arxiv and ssrn defaults, got %+v", cfg.Sources)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  path: /tmp/custom.db
scheduler:
  collectionInterval: 1h
openai:
  model: gpt-4o-mini
sources:
  - name: arxiv
    collector: arxiv
    categories: ["q-fin.GN"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()

	if cfg.Database.Path != "/tmp/custom.db" {
		t.Fatalf("file override lost: %q", cfg.Database.Path)
	}
	if cfg.Scheduler.CollectionInterval != time.Hour {
		t.Fatalf("unexpected collection interval %v", cfg.Scheduler.CollectionInterval)
	}
	if cfg.Scheduler.ProcessingInterval != 6*time.Hour {
		t.Fatalf("untouched defaults must survive the merge, got %v", cfg.Scheduler.ProcessingInterval)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model %q", cfg.OpenAI.Model)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Categories[0] != "q-fin.GN" {
		t.Fatalf("file sources must replace defaults, got %+v", cfg.Sources)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv(databasePathEnv, "/tmp/env.db")
	t.Setenv(openAIKeyEnv, "sk-test")
	t.Setenv(openAIModelEnv, "gpt-4.1")
	t.Setenv(listenAddrEnv, ":9999")

	cfg := Load()

	if cfg.Database.Path != "/tmp/env.db" {
		t.Fatalf("database env override lost: %q", cfg.Database.Path)
	}
	if cfg.OpenAI.APIKey != "sk-test" || cfg.OpenAI.Model != "gpt-4.1" {
		t.Fatalf("openai env overrides lost: %+v", cfg.OpenAI)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("address env override lost: %q", cfg.Server.Addr)
	}
}

func TestLoadIgnoresBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.Database.Path != "data/research.db" {
		t.Fatalf("broken file must fall back to defaults, got %q", cfg.Database.Path)
	}
}
