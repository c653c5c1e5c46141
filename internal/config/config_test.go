package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()
	path := writeTestConfig(t, `
folder: "data/"
sport: "football"
source:
  bucket: "my-bucket"
store:
  uri: "mongodb://localhost:27017"
  database: "ladderbuilder"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 4 {
		t.Fatalf("Workers = %d, want default 4", cfg.Workers)
	}
	if cfg.BatchSize != 1000 {
		t.Fatalf("BatchSize = %d, want default 1000", cfg.BatchSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsUnknownSport(t *testing.T) {
	t.Parallel()
	path := writeTestConfig(t, `
folder: "data/"
sport: "cricket"
source:
  bucket: "my-bucket"
store:
  uri: "mongodb://localhost:27017"
  database: "ladderbuilder"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to reject an unknown sport")
	}
}

func TestValidateRequiresStoreURI(t *testing.T) {
	t.Parallel()
	path := writeTestConfig(t, `
folder: "data/"
sport: "tennis"
source:
  bucket: "my-bucket"
store:
  database: "ladderbuilder"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to require store.uri")
	}
}
