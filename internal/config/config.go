package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// NERBundleDir points at an ONNX NER bundle (ner.onnx, label_map.json,
	// tokenizer/vocab.txt). Empty means the built-in lexical recognizer is
	// used.
	NERBundleDir string `json:"ner_bundle_dir,omitempty"`

	// NERSeqLen is the model sequence length. 0 means the default (256).
	NERSeqLen int `json:"ner_seq_len,omitempty"`

	// RulesPath points at an optional YAML file with extra detection rules
	// applied on top of the built-in battery.
	RulesPath string `json:"rules_path,omitempty"`

	// DetectCachePath enables the persistent recognizer span cache (bbolt)
	// at the given path. Empty disables caching.
	DetectCachePath string `json:"detect_cache_path,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is
	// locked" errors). 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		NERSeqLen: 256,
	}
}

// DefaultBaseDir returns ~/.veil, or ./.veil if the home directory cannot
// be resolved.
func DefaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".veil"
	}
	return filepath.Join(home, ".veil")
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.veil.
func Load(baseDir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and
// deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.NERBundleDir = overlay.NERBundleDir
	if result.NERBundleDir == "" {
		result.NERBundleDir = base.NERBundleDir
	}

	result.NERSeqLen = overlay.NERSeqLen
	if result.NERSeqLen == 0 {
		result.NERSeqLen = base.NERSeqLen
	}

	result.RulesPath = overlay.RulesPath
	if result.RulesPath == "" {
		result.RulesPath = base.RulesPath
	}

	result.DetectCachePath = overlay.DetectCachePath
	if result.DetectCachePath == "" {
		result.DetectCachePath = base.DetectCachePath
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes
// duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
