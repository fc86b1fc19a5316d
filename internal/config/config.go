// Package config loads runtime configuration for the smeta CLI.
package config

import (
	"time"

	"github.com/alexanderramin/smeta/internal/llm"
)

// Config is the root of the configuration tree.
type Config struct {
	Database       Database       `yaml:"database"`
	Logging        Logging        `yaml:"logging"`
	LLM            LLM            `yaml:"llm"`
	Classification Classification `yaml:"classification"`
	Storage        Storage        `yaml:"storage"`
	Jobs           Jobs           `yaml:"jobs"`
}

type Database struct {
	Path string `yaml:"path"`
}

type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console, auto
}

type LLM struct {
	Enabled     bool          `yaml:"enabled"`
	LogCalls    bool          `yaml:"log_calls"`
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
}

type Classification struct {
	ChunkSize    int     `yaml:"chunk_size"`
	AIConfidence float64 `yaml:"ai_confidence"`
	AIEnabled    bool    `yaml:"ai_enabled"`
}

type Storage struct {
	Backend       string `yaml:"backend"` // local or gcs
	LocalDir      string `yaml:"local_dir"`
	GCSBucket     string `yaml:"gcs_bucket"`
	GCSCredFile   string `yaml:"gcs_credentials_file"`
	CacheMaxBytes int64  `yaml:"cache_max_bytes"`
}

type Jobs struct {
	Workers     int           `yaml:"workers"`
	QueueSize   int           `yaml:"queue_size"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// Defaults returns a Config that runs fully offline: SQLite under ~/.smeta,
// local snapshot storage, AI classification off.
func Defaults() Config {
	return Config{
		Database: Database{Path: defaultDBPath()},
		Logging:  Logging{Level: "info", Format: "auto"},
		LLM: LLM{
			Endpoint:    "http://localhost:11434",
			Model:       "llama3.2",
			Timeout:     20 * time.Second,
			MaxRetries:  1,
			Temperature: 0.1,
			MaxTokens:   2048,
		},
		Classification: Classification{
			ChunkSize:    200,
			AIConfidence: 0.7,
		},
		Storage: Storage{
			Backend:       "local",
			LocalDir:      defaultBlobDir(),
			CacheMaxBytes: 64 << 20,
		},
		Jobs: Jobs{
			Workers:     2,
			QueueSize:   64,
			MaxAttempts: 3,
			RetryDelay:  500 * time.Millisecond,
		},
	}
}

// LLMConfig converts the llm section into the client's configuration.
func (c *Config) LLMConfig() llm.LLMConfig {
	out := llm.DefaultConfig()
	out.Enabled = c.LLM.Enabled && c.Classification.AIEnabled
	out.LogCalls = c.LLM.LogCalls
	out.Endpoint = c.LLM.Endpoint
	out.Model = c.LLM.Model
	out.TimeoutMs = int(c.LLM.Timeout / time.Millisecond)
	out.MaxRetries = c.LLM.MaxRetries
	out.Tasks[llm.TaskClassify] = llm.TaskConfig{
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
		TimeoutMs:   out.TimeoutMs,
	}
	return out
}
