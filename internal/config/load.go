package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"fileloader/internal/util"
)

// LoadConfig reads, parses, applies defaults to, and validates a RunConfig
// YAML file, following the teacher's LoadConfig -> applyDefaults ->
// ValidateConfig pipeline shape.
func LoadConfig(filename string) (*RunConfig, error) {
	fileBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filename, err)
	}

	var cfg RunConfig
	if err := yaml.Unmarshal(fileBytes, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in '%s': %w", filename, err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills unset RunConfig fields the way the teacher's
// config.applyDefaults does: zero-value-in means apply the documented
// default.
func applyDefaults(cfg *RunConfig) {
	cfg.DatabaseURL = util.ExpandEnvUniversal(cfg.DatabaseURL)
	cfg.IntakeDir = util.ExpandEnvUniversal(cfg.IntakeDir)
	cfg.ArchiveDir = util.ExpandEnvUniversal(cfg.ArchiveDir)
	cfg.DuplicatesDir = util.ExpandEnvUniversal(cfg.DuplicatesDir)

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = runtime.NumCPU()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	for i := range cfg.Sources {
		if cfg.Sources[i].Delimiter == "" {
			cfg.Sources[i].Delimiter = ","
		}
		if cfg.Sources[i].Encoding == "" {
			cfg.Sources[i].Encoding = "utf-8"
		}
		if cfg.Sources[i].ArrayPath == "" {
			cfg.Sources[i].ArrayPath = "item"
		}
	}
}
