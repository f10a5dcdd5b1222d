package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.NERSeqLen != 256 {
		t.Errorf("NERSeqLen = %d, want 256", cfg.NERSeqLen)
	}
	if cfg.NERBundleDir != "" {
		t.Errorf("NERBundleDir = %q, want empty", cfg.NERBundleDir)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	raw := `{"ner_bundle_dir": "/opt/ner", "db_max_open_conns": 1}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(raw), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.NERBundleDir != "/opt/ner" {
		t.Errorf("NERBundleDir = %q", cfg.NERBundleDir)
	}
	if cfg.DBMaxOpenConns != 1 {
		t.Errorf("DBMaxOpenConns = %d", cfg.DBMaxOpenConns)
	}
	// Unset scalar falls back to default.
	if cfg.NERSeqLen != 256 {
		t.Errorf("NERSeqLen = %d, want 256", cfg.NERSeqLen)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{nope"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestMergeDisabledTools(t *testing.T) {
	base := &Config{DisabledTools: []string{"veil_restore_text", " "}}
	overlay := &Config{DisabledTools: []string{"veil_restore_text", "veil_obscure_text"}}

	merged := Merge(base, overlay)
	if len(merged.DisabledTools) != 2 {
		t.Fatalf("DisabledTools = %v", merged.DisabledTools)
	}
}
