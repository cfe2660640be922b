// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by connectors and AI backends.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "deep-research/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ConnectorConfig holds settings for the search connectors.
type ConnectorConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of results per connector per query
	// (default 5, matching the per-source caps of the original workflow).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// EnableArxiv controls the arXiv academic connector.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv"`

	// EnableWeb controls the DuckDuckGo web connector.
	EnableWeb bool `json:"enable_web" yaml:"enable_web"`

	// EnableKaggle controls the Kaggle dataset and competition connectors.
	EnableKaggle bool `json:"enable_kaggle" yaml:"enable_kaggle"`

	// KaggleUsername and KaggleKey authenticate against the Kaggle API.
	// When either is empty the Kaggle connectors return no results.
	KaggleUsername string `json:"kaggle_username,omitempty" yaml:"kaggle_username,omitempty"`
	KaggleKey      string `json:"kaggle_key,omitempty" yaml:"kaggle_key,omitempty"`

	// SemanticScholarAPIKey is an optional key for higher citation-search
	// rate limits during deep-dive.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`
}

// ReasonProvider selects the language-model backend.
type ReasonProvider string

const (
	ProviderAnthropic ReasonProvider = "anthropic"
	ProviderOpenAI    ReasonProvider = "openai"
)

// ReasonConfig holds settings for the language-model capability.
type ReasonConfig struct {
	HTTPConfig `yaml:",inline"`

	// Provider selects the backend: anthropic or openai.
	Provider ReasonProvider `json:"provider" yaml:"provider"`

	// Model is the model identifier passed to the provider.
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates against the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens caps the response length per call (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// WorkflowConfig holds the tunable bounds of the research workflow.
type WorkflowConfig struct {
	// MaxIterations caps the search/evaluate loop (default 3). When the cap
	// is reached the workflow proceeds regardless of the coverage verdict.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// MaxDepth caps deep-dive citation expansion (default 2).
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// MinResultsThreshold triggers query refinement when a search returns
	// fewer hits (default 2).
	MinResultsThreshold int `json:"min_results_threshold" yaml:"min_results_threshold"`

	// StalenessThreshold flags documents older than this as stale
	// (default 2 years). Stale documents are annotated, never excluded.
	StalenessThreshold time.Duration `json:"staleness_threshold" yaml:"staleness_threshold"`
}

// ReportConfig holds settings for report rendering and persistence.
type ReportConfig struct {
	// OutputDir is the directory for rendered reports (default "reports").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// ArchiveConfig holds settings for the run archive database.
type ArchiveConfig struct {
	// Dir is the directory holding the SQLite archive (default "archive").
	Dir string `json:"dir" yaml:"dir"`
}

// Config groups all component configurations.
type Config struct {
	Workflow   WorkflowConfig  `json:"workflow" yaml:"workflow"`
	Connectors ConnectorConfig `json:"connectors" yaml:"connectors"`
	Reason     ReasonConfig    `json:"reason" yaml:"reason"`
	Report     ReportConfig    `json:"report" yaml:"report"`
	Archive    ArchiveConfig   `json:"archive" yaml:"archive"`
}

// ApplyDefaults fills zero-valued fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Workflow.MaxIterations <= 0 {
		c.Workflow.MaxIterations = 3
	}
	if c.Workflow.MaxDepth <= 0 {
		c.Workflow.MaxDepth = 2
	}
	if c.Workflow.MinResultsThreshold <= 0 {
		c.Workflow.MinResultsThreshold = 2
	}
	if c.Workflow.StalenessThreshold <= 0 {
		c.Workflow.StalenessThreshold = 2 * 365 * 24 * time.Hour
	}
	if c.Connectors.MaxResults <= 0 {
		c.Connectors.MaxResults = 5
	}
	if c.Connectors.Timeout <= 0 {
		c.Connectors.Timeout = 30 * time.Second
	}
	if c.Connectors.UserAgent == "" {
		c.Connectors.UserAgent = "deep-research/0.1"
	}
	if c.Reason.Timeout <= 0 {
		c.Reason.Timeout = 120 * time.Second
	}
	if c.Reason.Provider == "" {
		c.Reason.Provider = ProviderAnthropic
	}
	if c.Reason.MaxTokens <= 0 {
		c.Reason.MaxTokens = 4096
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "reports"
	}
	if c.Archive.Dir == "" {
		c.Archive.Dir = "archive"
	}
}
