package config

// Config holds abstractor configuration.
// Stored at: ~/.abstractor/config.yaml
type Config struct {
	Providers map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	Defaults  DefaultsCfg            `mapstructure:"defaults" yaml:"defaults"`
	Pipeline  PipelineCfg            `mapstructure:"pipeline" yaml:"pipeline"`
	Jobs      JobsCfg                `mapstructure:"jobs" yaml:"jobs"`
	Render    RenderCfg              `mapstructure:"render" yaml:"render"`
}

// RenderCfg configures document generation.
type RenderCfg struct {
	// TemplatePath points at the DOCX template. Empty means
	// "template.docx" in the abstractor home directory.
	TemplatePath string `mapstructure:"template_path" yaml:"template_path"`
}

// ProviderCfg configures a document extraction provider.
type ProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`             // "anthropic", "openai"
	Model     string  `mapstructure:"model" yaml:"model"`           // Model name
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
	MaxTokens int     `mapstructure:"max_tokens" yaml:"max_tokens"` // Response token cap
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selection.
type DefaultsCfg struct {
	Provider string `mapstructure:"provider" yaml:"provider"` // Default extraction provider
}

// PipelineCfg holds extraction pipeline tuning knobs.
type PipelineCfg struct {
	// ChunkMaxPages is the page count above which a document is split.
	ChunkMaxPages int `mapstructure:"chunk_max_pages" yaml:"chunk_max_pages"`
	// Concurrency is the number of parallel extraction workers.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// IdentityWaitMinutes bounds how long a job waits for manual identity fields.
	IdentityWaitMinutes int `mapstructure:"identity_wait_minutes" yaml:"identity_wait_minutes"`
}

// JobsCfg holds job registry retention settings.
type JobsCfg struct {
	// RetentionMinutes is how long finished jobs stay queryable.
	RetentionMinutes int `mapstructure:"retention_minutes" yaml:"retention_minutes"`
	// SweepMinutes is the interval between registry cleanup passes.
	SweepMinutes int `mapstructure:"sweep_minutes" yaml:"sweep_minutes"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderCfg{
			"anthropic": {
				Type:      "anthropic",
				Model:     "claude-sonnet-4-20250514",
				APIKey:    "${ANTHROPIC_API_KEY}",
				RateLimit: 50.0,
				MaxTokens: 8192,
				Enabled:   true,
			},
			"openai": {
				Type:      "openai",
				Model:     "gpt-4o",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 60.0,
				MaxTokens: 8192,
				Enabled:   false,
			},
		},
		Defaults: DefaultsCfg{
			Provider: "anthropic",
		},
		Pipeline: PipelineCfg{
			ChunkMaxPages:       15,
			Concurrency:         3,
			IdentityWaitMinutes: 30,
		},
		Jobs: JobsCfg{
			RetentionMinutes: 60,
			SweepMinutes:     30,
		},
		Render: RenderCfg{},
	}
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
