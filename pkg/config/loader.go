package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// PipelineYAMLConfig represents the complete pipeline.yaml file structure.
type PipelineYAMLConfig struct {
	Queue        *QueueConfig            `yaml:"queue"`
	Broker       *BrokerYAMLConfig       `yaml:"broker"`
	Stages       *StagesYAMLConfig       `yaml:"stages"`
	Helpdesk     *HelpdeskYAMLConfig     `yaml:"helpdesk"`
	Storage      *StorageYAMLConfig      `yaml:"storage"`
	Orchestrator *OrchestratorYAMLConfig `yaml:"orchestrator"`
	Retry        *RetryYAMLConfig        `yaml:"retry"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
//
// Steps performed:
//  1. Load pipeline.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge user-provided queue/orchestrator/retry settings onto built-in defaults
//  5. Validate all configuration
//  6. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized successfully",
		"worker_count", cfg.Queue.WorkerCount,
		"max_retries", cfg.Defaults.Retry.MaxRetries)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	yamlCfg, err := loader.loadPipelineYAML()
	if err != nil {
		return nil, NewLoadError("pipeline.yaml", err)
	}

	queueConfig := DefaultQueueConfig()
	if yamlCfg.Queue != nil {
		if err := mergo.Merge(queueConfig, yamlCfg.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	defaults := DefaultDefaults()
	if yamlCfg.Orchestrator != nil {
		applyOrchestratorOverrides(&defaults.Orchestrator, yamlCfg.Orchestrator)
	}
	if yamlCfg.Retry != nil {
		applyRetryOverrides(&defaults.Retry, yamlCfg.Retry)
	}

	if yamlCfg.Broker == nil {
		yamlCfg.Broker = &BrokerYAMLConfig{}
	}
	if yamlCfg.Broker.Addr == "" {
		yamlCfg.Broker.Addr = envOrDefault("BROKER_ADDR", "localhost:6379")
	}

	if yamlCfg.Stages == nil {
		yamlCfg.Stages = &StagesYAMLConfig{}
	}

	if yamlCfg.Helpdesk == nil {
		yamlCfg.Helpdesk = &HelpdeskYAMLConfig{}
	}

	if yamlCfg.Storage == nil {
		yamlCfg.Storage = &StorageYAMLConfig{}
	}

	return &Config{
		configDir: configDir,
		Defaults:  defaults,
		Queue:     queueConfig,
		Broker:    yamlCfg.Broker,
		Stages:    yamlCfg.Stages,
		Helpdesk:  yamlCfg.Helpdesk,
		Storage:   yamlCfg.Storage,
	}, nil
}

func applyOrchestratorOverrides(d *OrchestratorDelays, o *OrchestratorYAMLConfig) {
	if o.ClassifyDelaySeconds != nil {
		d.Classify = time.Duration(*o.ClassifyDelaySeconds) * time.Second
	}
	if o.SummarizeDelaySeconds != nil {
		d.Summarize = time.Duration(*o.SummarizeDelaySeconds) * time.Second
	}
	if o.DocQASelectDelaySeconds != nil {
		d.DocQASelect = time.Duration(*o.DocQASelectDelaySeconds) * time.Second
	}
	if o.NormalizeDelaySeconds != nil {
		d.Normalize = time.Duration(*o.NormalizeDelaySeconds) * time.Second
	}
	if o.TicketDelaySeconds != nil {
		d.Ticket = time.Duration(*o.TicketDelaySeconds) * time.Second
	}
}

func applyRetryOverrides(r *RetryPolicy, o *RetryYAMLConfig) {
	if o.MaxRetries != nil {
		r.MaxRetries = *o.MaxRetries
	}
	if o.BaseDelaySeconds != nil {
		r.BaseDelay = time.Duration(*o.BaseDelaySeconds) * time.Second
	}
	if o.Backoff != "" {
		r.Backoff = BackoffKind(o.Backoff)
	}
}

func validate(cfg *Config) error {
	v := NewValidator(cfg)
	return v.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadPipelineYAML() (*PipelineYAMLConfig, error) {
	var cfg PipelineYAMLConfig
	if err := l.loadYAML("pipeline.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
