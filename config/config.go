// Package config provides centralized configuration management for the HED
// annotation core.
//
// This package implements a three-tier configuration hierarchy:
//  1. Environment variables (highest priority)
//  2. An optional YAML config file (HED_CONFIG_FILE)
//  3. Built-in defaults (lowest priority)
//
// There is no HTTP server, database, or CLI flag tier here — the core is a
// library, not a service, so only the options the library itself consults
// are exposed.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for the HED annotation core.
//
// All values have sensible defaults and can be overridden through
// environment variables.
type Config struct {
	// Schema Resolution
	// =================

	// DefaultSchemaVersion is the HED schema version assumed when a caller
	// resolves tags without specifying one explicitly.
	// Environment: HED_DEFAULT_SCHEMA_VERSION
	// Default: "8.3.0"
	DefaultSchemaVersion string

	// SchemaCacheDir is a hint for where a caller-supplied schema loader
	// may cache downloaded schema files. The core never reads or writes
	// this directory itself — schema loading is an external collaborator
	// (spec.md §1) — but the path is threaded through so a single
	// environment variable configures both the loader and this library.
	// Environment: HED_SCHEMA_CACHE_DIR
	// Default: "./.hed_cache"
	SchemaCacheDir string

	// Sidecar Validation
	// ==================

	// StrictSidecarValidation is a strict-mode switch for sidecar
	// validation. Load reads it, but no package in this module consults
	// it: sidecar.LoadSidecar reports the same diagnostics whatever its
	// value.
	// Environment: HED_STRICT_SIDECAR
	// Default: false
	StrictSidecarValidation bool

	// Assembly
	// ========

	// AssemblerWorkers bounds the number of Tabular Inputs processed
	// concurrently by assembler.AssembleFiles. Each worker owns its own
	// tag trees, per spec.md §5 ("each worker processes its own Tabular
	// Input"); there is no concurrency within a single input.
	// Environment: HED_ASSEMBLER_WORKERS
	// Default: runtime.GOMAXPROCS(0)
	AssemblerWorkers int

	// Logging
	// =======

	// LogLevel names the minimum log level for message output. Load
	// reads it but does not apply it to the logger package;
	// logger.Configure reads HED_LOG_LEVEL on its own.
	// Environment: HED_LOG_LEVEL
	// Default: "info"
	// Valid values: "trace", "debug", "info", "warn", "error"
	LogLevel string
}

// fileConfig mirrors Config's fields for YAML decoding. Only the keys a
// config file actually sets are applied; everything else keeps the
// built-in default until an environment variable overrides it.
type fileConfig struct {
	DefaultSchemaVersion    *string `yaml:"default_schema_version"`
	SchemaCacheDir          *string `yaml:"schema_cache_dir"`
	StrictSidecarValidation *bool   `yaml:"strict_sidecar_validation"`
	AssemblerWorkers        *int    `yaml:"assembler_workers"`
	LogLevel                *string `yaml:"log_level"`
}

// Load creates a new Config instance with values loaded from environment
// variables and, if HED_CONFIG_FILE names a readable YAML file, that
// file, falling back to documented defaults. Environment variables win
// over the file, which wins over defaults.
//
// Environment Variable Format:
//
//	All environment variables use the HED_ prefix followed by uppercase
//	parameter names with underscores, e.g. HED_LOG_LEVEL=debug.
//
// Boolean Values:
//
//	Accept "true", "1" for true; anything else is considered false.
func Load() *Config {
	cfg := &Config{
		DefaultSchemaVersion:    "8.3.0",
		SchemaCacheDir:          "./.hed_cache",
		StrictSidecarValidation: false,
		AssemblerWorkers:        runtime.GOMAXPROCS(0),
		LogLevel:                "info",
	}

	if path := os.Getenv("HED_CONFIG_FILE"); path != "" {
		if fc, err := loadFile(path); err == nil {
			applyFile(cfg, fc)
		}
	}

	cfg.DefaultSchemaVersion = getEnv("HED_DEFAULT_SCHEMA_VERSION", cfg.DefaultSchemaVersion)
	cfg.SchemaCacheDir = getEnv("HED_SCHEMA_CACHE_DIR", cfg.SchemaCacheDir)
	cfg.StrictSidecarValidation = getEnvBool("HED_STRICT_SIDECAR", cfg.StrictSidecarValidation)
	cfg.AssemblerWorkers = getEnvInt("HED_ASSEMBLER_WORKERS", cfg.AssemblerWorkers)
	cfg.LogLevel = getEnv("HED_LOG_LEVEL", cfg.LogLevel)
	return cfg
}

// loadFile reads and decodes a YAML config file. A missing or malformed
// file is not fatal to Load — it simply leaves the built-in defaults (and
// any environment variables) in effect, and the error is not surfaced.
func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &fc, nil
}

func applyFile(cfg *Config, fc *fileConfig) {
	if fc.DefaultSchemaVersion != nil {
		cfg.DefaultSchemaVersion = *fc.DefaultSchemaVersion
	}
	if fc.SchemaCacheDir != nil {
		cfg.SchemaCacheDir = *fc.SchemaCacheDir
	}
	if fc.StrictSidecarValidation != nil {
		cfg.StrictSidecarValidation = *fc.StrictSidecarValidation
	}
	if fc.AssemblerWorkers != nil {
		cfg.AssemblerWorkers = *fc.AssemblerWorkers
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
}

// =============================================================================
// Environment Variable Parsing Utilities
// =============================================================================
//
// These helper functions provide type-safe parsing of environment variables
// with fallback to default values when variables are unset or invalid.

// getEnv retrieves a string environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable with a default fallback.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable with a default fallback.
//
// Examples:
//
//	HED_STRICT_SIDECAR=true  -> true
//	HED_STRICT_SIDECAR=1     -> true
//	HED_STRICT_SIDECAR=      -> defaultValue
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
