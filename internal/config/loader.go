package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "smeta.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if yamlPath == "" {
		yamlPath = DefaultConfigFile
	}
	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays SMETA_* variables onto cfg. Empty or unparsable values
// leave the current setting alone.
func loadEnv(cfg *Config) {
	setString(&cfg.Database.Path, "SMETA_DB")
	setString(&cfg.Logging.Level, "SMETA_LOG_LEVEL")
	setString(&cfg.Logging.Format, "SMETA_LOG_FORMAT")

	setBool(&cfg.LLM.Enabled, "SMETA_LLM_ENABLED")
	setBool(&cfg.LLM.LogCalls, "SMETA_LLM_LOG_CALLS")
	setString(&cfg.LLM.Endpoint, "SMETA_LLM_ENDPOINT")
	setString(&cfg.LLM.Model, "SMETA_LLM_MODEL")
	setDuration(&cfg.LLM.Timeout, "SMETA_LLM_TIMEOUT")
	setInt(&cfg.LLM.MaxRetries, "SMETA_LLM_MAX_RETRIES")
	setFloat64(&cfg.LLM.Temperature, "SMETA_LLM_TEMPERATURE")
	setInt(&cfg.LLM.MaxTokens, "SMETA_LLM_MAX_TOKENS")

	setInt(&cfg.Classification.ChunkSize, "SMETA_CLASSIFY_CHUNK_SIZE")
	setFloat64(&cfg.Classification.AIConfidence, "SMETA_CLASSIFY_AI_CONFIDENCE")
	setBool(&cfg.Classification.AIEnabled, "SMETA_CLASSIFY_AI_ENABLED")

	setString(&cfg.Storage.Backend, "SMETA_STORAGE_BACKEND")
	setString(&cfg.Storage.LocalDir, "SMETA_STORAGE_DIR")
	setString(&cfg.Storage.GCSBucket, "SMETA_GCS_BUCKET")
	setString(&cfg.Storage.GCSCredFile, "SMETA_GCS_CREDENTIALS_FILE")
	setInt64(&cfg.Storage.CacheMaxBytes, "SMETA_CACHE_MAX_BYTES")

	setInt(&cfg.Jobs.Workers, "SMETA_JOB_WORKERS")
	setInt(&cfg.Jobs.QueueSize, "SMETA_JOB_QUEUE_SIZE")
	setInt(&cfg.Jobs.MaxAttempts, "SMETA_JOB_MAX_ATTEMPTS")
	setDuration(&cfg.Jobs.RetryDelay, "SMETA_JOB_RETRY_DELAY")
}

func validate(cfg *Config) error {
	if cfg.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if cfg.Classification.ChunkSize < 1 {
		return errors.New("classification.chunk_size must be >= 1")
	}
	if cfg.Classification.AIConfidence < 0 || cfg.Classification.AIConfidence > 1 {
		return errors.New("classification.ai_confidence must be within [0, 1]")
	}
	switch cfg.Storage.Backend {
	case "local":
		if cfg.Storage.LocalDir == "" {
			return errors.New("storage.local_dir is required for the local backend")
		}
	case "gcs":
		if cfg.Storage.GCSBucket == "" {
			return errors.New("storage.gcs_bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend %q must be local or gcs", cfg.Storage.Backend)
	}
	if cfg.Storage.CacheMaxBytes < 0 {
		return errors.New("storage.cache_max_bytes must be >= 0")
	}
	if cfg.Jobs.Workers < 1 {
		return errors.New("jobs.workers must be >= 1")
	}
	if cfg.Jobs.MaxAttempts < 1 {
		return errors.New("jobs.max_attempts must be >= 1")
	}
	if cfg.LLM.MaxRetries < 0 {
		return errors.New("llm.max_retries must be >= 0")
	}
	return nil
}

func defaultDBPath() string {
	return filepath.Join(homeDir(), ".smeta", "smeta.db")
}

func defaultBlobDir() string {
	return filepath.Join(homeDir(), ".smeta", "blobs")
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
