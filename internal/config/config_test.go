package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Generator: GeneratorConfig{Model: "llama3.2:1b"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.Index.Driver != "file" {
		t.Errorf("default index driver: got %q, want file", cfg.Index.Driver)
	}
	if cfg.Index.Collection != "docs" {
		t.Errorf("default collection: got %q", cfg.Index.Collection)
	}
	if cfg.Docs.ChunkSize != 900 || cfg.Docs.ChunkOverlap != 150 {
		t.Errorf("default chunking: got %d/%d", cfg.Docs.ChunkSize, cfg.Docs.ChunkOverlap)
	}
	if cfg.Retrieval.TopK != 4 {
		t.Errorf("default top_k: got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.ContextBudget != 2200 {
		t.Errorf("default context budget: got %d", cfg.Retrieval.ContextBudget)
	}
	if cfg.Gate.StrongMinLen != 5 {
		t.Errorf("default strong keyword length: got %d", cfg.Gate.StrongMinLen)
	}
	if cfg.Generator.Mode != "generative" {
		t.Errorf("default generator mode: got %q", cfg.Generator.Mode)
	}
}

func TestValidate_UnknownIndexDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Index.Driver = "chroma"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown index driver")
	}
}

func TestValidate_RedisDriverRequiresAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Index.Driver = "redis"
	cfg.Index.Redis.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for redis driver without addrs")
	}

	cfg.Index.Redis.Addrs = []string{"localhost:6379"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with addrs set: %v", err)
	}
}

func TestValidate_GenerativeModeRequiresModel(t *testing.T) {
	cfg := validConfig()
	cfg.Generator.Model = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for generative mode without model")
	}

	cfg.Generator.Mode = "extractive"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("extractive mode needs no model, got error: %v", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DOCENT_TEST_KEY", "sekrit")
	os.Unsetenv("DOCENT_TEST_MISSING")

	in := []byte("api_key: ${DOCENT_TEST_KEY}\nmodel: ${DOCENT_TEST_MISSING:-llama3.2}\n")
	out := string(expandEnvVars(in))

	want := "api_key: sekrit\nmodel: llama3.2\n"
	if out != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", out, want)
	}
}
