// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults bounds both the search hits requested and the fetch attempts (default 5).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// Backends lists the enabled backends in priority order.
	Backends []string `json:"backends" yaml:"backends" mapstructure:"backends"`

	// MinResultsBeforeFallback enables fallback-only backends (Bing) when fewer results were gathered (default 4).
	MinResultsBeforeFallback int `json:"min_results_before_fallback" yaml:"min_results_before_fallback" mapstructure:"min_results_before_fallback"`

	// MaxRetries is the 429/503 retry count for search requests (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// FetchConfig holds settings for the page fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxBytes caps the bytes read from each page (default 2 MiB).
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes" mapstructure:"max_bytes"`

	// MinContentChars is the shortest extracted text accepted as a source (default 200).
	MinContentChars int `json:"min_content_chars" yaml:"min_content_chars" mapstructure:"min_content_chars"`

	// Concurrency bounds parallel fetches. Zero means MaxResults.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// AggregateConfig holds the corpus budget and deduplication settings.
type AggregateConfig struct {
	// CharBudget is the upper bound on corpus size in characters (default 25000).
	CharBudget int `json:"char_budget" yaml:"char_budget" mapstructure:"char_budget"`

	// DuplicateThreshold is the shingle Jaccard similarity at or above which a
	// source is dropped as a duplicate. Zero means the default 0.9.
	DuplicateThreshold float64 `json:"duplicate_threshold" yaml:"duplicate_threshold" mapstructure:"duplicate_threshold"`

	// ShingleSize is the number of words per shingle. Zero means the default 5.
	ShingleSize int `json:"shingle_size" yaml:"shingle_size" mapstructure:"shingle_size"`
}

// AIProvider names a generative model backend.
type AIProvider string

const (
	ProviderAnthropic AIProvider = "anthropic"
	ProviderGemini    AIProvider = "gemini"
	ProviderOpenAI    AIProvider = "openai"
)

// AIConfig holds shared settings for stages that call a generative model.
type AIConfig struct {
	// Provider selects the backend: anthropic, gemini, or openai.
	Provider AIProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the primary model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// FallbackModels are tried in order when the primary model errors.
	FallbackModels []string `json:"fallback_models,omitempty" yaml:"fallback_models,omitempty" mapstructure:"fallback_models"`

	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxAttempts bounds transport-level attempts per model call (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// ModelTimeout is the deadline of a single model call (default 3m).
	ModelTimeout time.Duration `json:"model_timeout" yaml:"model_timeout" mapstructure:"model_timeout"`

	// MaxTokens is the output token limit (default 8192).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Temperature is the sampling temperature (default 0.7).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
}

// SynthesisConfig holds settings for the report synthesis stage.
type SynthesisConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// Language is the output language of the report (default English).
	Language string `json:"language" yaml:"language" mapstructure:"language"`
}

// CacheConfig configures the optional page cache. An empty Path disables it.
type CacheConfig struct {
	Path string        `json:"path" yaml:"path" mapstructure:"path"`
	TTL  time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// ExportConfig holds settings for writing artifacts.
type ExportConfig struct {
	// OutputDir is where generate writes exported artifacts (default "output").
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// Formats lists the formats written by generate (default pdf, pptx).
	Formats []string `json:"formats" yaml:"formats" mapstructure:"formats"`

	// FontFile is a TrueType font for PDF output. Reports in languages
	// written in non-Latin scripts cannot be rendered to PDF without one.
	FontFile string `json:"font_file,omitempty" yaml:"font_file,omitempty" mapstructure:"font_file"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Search    SearchConfig    `json:"search" yaml:"search" mapstructure:"search"`
	Fetch     FetchConfig     `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Aggregate AggregateConfig `json:"aggregate" yaml:"aggregate" mapstructure:"aggregate"`
	Synthesis SynthesisConfig `json:"synthesis" yaml:"synthesis" mapstructure:"synthesis"`
	Cache     CacheConfig     `json:"cache" yaml:"cache" mapstructure:"cache"`
	Export    ExportConfig    `json:"export" yaml:"export" mapstructure:"export"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Defaults used when a config field is zero.
const (
	DefaultMaxResults         = 5
	DefaultCharBudget         = 25000
	DefaultDuplicateThreshold = 0.9
	DefaultShingleSize        = 5
	DefaultLanguage           = "English"
)

// DefaultPipelineConfig returns the documented defaults for every stage.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Search: SearchConfig{
			HTTPConfig:               HTTPConfig{Timeout: 10 * time.Second, UserAgent: defaultUserAgent},
			MaxResults:               DefaultMaxResults,
			Backends:                 []string{"wikipedia", "duckduckgo", "bing"},
			MinResultsBeforeFallback: 4,
			MaxRetries:               2,
		},
		Fetch: FetchConfig{
			HTTPConfig:      HTTPConfig{Timeout: 10 * time.Second, UserAgent: defaultUserAgent},
			MaxBytes:        2 << 20,
			MinContentChars: 200,
		},
		Aggregate: DefaultAggregateConfig(),
		Synthesis: SynthesisConfig{
			AIConfig: AIConfig{
				Provider:       ProviderGemini,
				Model:          "gemini-2.0-flash",
				FallbackModels: []string{"gemini-2.5-flash", "gemini-2.5-pro"},
				MaxAttempts:    3,
				ModelTimeout:   3 * time.Minute,
				MaxTokens:      8192,
				Temperature:    0.7,
			},
			Language: DefaultLanguage,
		},
		Cache: CacheConfig{TTL: 24 * time.Hour},
		Export: ExportConfig{
			OutputDir: "output",
			Formats:   []string{"pdf", "pptx"},
		},
	}
}

// DefaultAggregateConfig returns the default budget and dedup settings.
func DefaultAggregateConfig() AggregateConfig {
	return AggregateConfig{
		CharBudget:         DefaultCharBudget,
		DuplicateThreshold: DefaultDuplicateThreshold,
		ShingleSize:        DefaultShingleSize,
	}
}

// Validate rejects configurations no stage can run with.
func (c PipelineConfig) Validate() error {
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must not be negative")
	}
	if c.Aggregate.CharBudget < 0 {
		return fmt.Errorf("aggregate.char_budget must not be negative")
	}
	if c.Aggregate.DuplicateThreshold < 0 || c.Aggregate.DuplicateThreshold > 1 {
		return fmt.Errorf("aggregate.duplicate_threshold %v out of range [0,1]", c.Aggregate.DuplicateThreshold)
	}
	switch c.Synthesis.Provider {
	case ProviderAnthropic, ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported synthesis.provider %q (supported: anthropic, gemini, openai)", c.Synthesis.Provider)
	}
	if c.Synthesis.Model == "" {
		return fmt.Errorf("synthesis.model is required")
	}
	return nil
}

// SupportedLanguages maps a language name to its display label.
var SupportedLanguages = map[string]string{
	"English":   "English",
	"Hindi":     "हिन्दी (Hindi)",
	"Marathi":   "मराठी (Marathi)",
	"Sanskrit":  "संस्कृतम् (Sanskrit)",
	"Tamil":     "தமிழ் (Tamil)",
	"Telugu":    "తెలుగు (Telugu)",
	"Bengali":   "বাংলা (Bengali)",
	"Gujarati":  "ગુજરાતી (Gujarati)",
	"Kannada":   "ಕನ್ನಡ (Kannada)",
	"Urdu":      "اردو (Urdu)",
	"Malayalam": "മലയാളം (Malayalam)",
	"Punjabi":   "ਪੰਜਾਬੀ (Punjabi)",
}

// NormalizeLanguage returns lang if supported, otherwise DefaultLanguage.
func NormalizeLanguage(lang string) string {
	if _, ok := SupportedLanguages[lang]; ok {
		return lang
	}
	return DefaultLanguage
}
