package config

// DatabaseYAMLConfig describes Postgres pool-sizing settings in YAML form.
// It is not a field of PipelineYAMLConfig, so pipeline.yaml does not read
// it; pool sizing comes from the environment via
// pkg/database.LoadConfigFromEnv.
type DatabaseYAMLConfig struct {
	MaxOpenConns    int    `yaml:"max_open_conns,omitempty"`
	MaxIdleConns    int    `yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime,omitempty"`
	ConnMaxIdleTime string `yaml:"conn_max_idle_time,omitempty"`
}

// BrokerYAMLConfig holds the Redis-compatible broker connection settings.
type BrokerYAMLConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// StageYAMLConfig toggles sandbox mode for one inference stage. In sandbox
// mode the stage uses a deterministic stub instead of invoking a real model,
// mirroring the source system's per-client SANDBOX env gates.
type StageYAMLConfig struct {
	Sandbox *bool `yaml:"sandbox,omitempty"`
}

// StagesYAMLConfig groups the sandbox toggle for every stage that has a
// meaningful stub-vs-real distinction. Summarize and Normalize are pure
// functions of their inputs and have no sandbox mode.
type StagesYAMLConfig struct {
	ASR      *StageYAMLConfig `yaml:"asr,omitempty"`
	DocQA    *StageYAMLConfig `yaml:"docqa,omitempty"`
	VQA      *StageYAMLConfig `yaml:"vqa,omitempty"`
	Classify *StageYAMLConfig `yaml:"classify,omitempty"`
}

// HelpdeskYAMLConfig holds the external help-desk client settings.
type HelpdeskYAMLConfig struct {
	Sandbox  *bool  `yaml:"sandbox,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
	EmailEnv string `yaml:"email_env,omitempty"`
	TokenEnv string `yaml:"token_env,omitempty"`
}

// StorageYAMLConfig holds the attachment object-storage client settings.
type StorageYAMLConfig struct {
	Sandbox string `yaml:"sandbox,omitempty"`
	Bucket  string `yaml:"bucket,omitempty"`
	Region  string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// OrchestratorYAMLConfig holds the per-task dispatch delays (seconds) used
// by the orchestrator, overridable for tests that want a tighter schedule.
type OrchestratorYAMLConfig struct {
	ClassifyDelaySeconds    *int `yaml:"classify_delay_seconds,omitempty"`
	SummarizeDelaySeconds   *int `yaml:"summarize_delay_seconds,omitempty"`
	DocQASelectDelaySeconds *int `yaml:"docqa_select_delay_seconds,omitempty"`
	NormalizeDelaySeconds   *int `yaml:"normalize_delay_seconds,omitempty"`
	TicketDelaySeconds      *int `yaml:"ticket_delay_seconds,omitempty"`
}

// RetryYAMLConfig holds the retry/backoff policy tuning for stage failures.
type RetryYAMLConfig struct {
	MaxRetries       *int   `yaml:"max_retries,omitempty"`
	BaseDelaySeconds *int   `yaml:"base_delay_seconds,omitempty"`
	Backoff          string `yaml:"backoff,omitempty"` // "fixed" or "exponential"
}
