// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ZoteroConfig holds credentials and addressing for the Zotero Web API.
type ZoteroConfig struct {
	// LibraryID is the numeric user or group library identifier.
	LibraryID string `json:"library_id" yaml:"library_id"`

	// LibraryType is "user" or "group".
	LibraryType string `json:"library_type" yaml:"library_type"`

	// APIKey authenticates against the Zotero Web API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// InboxCollection names the collection treated as the inbox. Empty
	// means the whole library is scanned.
	InboxCollection string `json:"inbox_collection,omitempty" yaml:"inbox_collection,omitempty"`
}

// WebDAVConfig holds the optional WebDAV storage endpoint for attachments.
type WebDAVConfig struct {
	// URL is the WebDAV base URL including the zotero/ suffix.
	URL string `json:"url" yaml:"url"`

	// Username for basic auth.
	Username string `json:"username" yaml:"username"`

	// Password for basic auth.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// ProviderRouting carries OpenRouter provider-routing hints.
type ProviderRouting struct {
	// Order is the ordered provider preference list (e.g. ["google-vertex", "groq"]).
	Order []string `json:"order,omitempty" yaml:"order,omitempty"`

	// AllowFallbacks permits routing to providers outside Order.
	AllowFallbacks *bool `json:"allow_fallbacks,omitempty" yaml:"allow_fallbacks,omitempty"`

	// Sort orders candidate providers by a metric ("throughput", "price").
	Sort string `json:"sort,omitempty" yaml:"sort,omitempty"`

	// Quantizations restricts allowed quantization levels (e.g. ["bf16", "fp16"]).
	Quantizations []string `json:"quantizations,omitempty" yaml:"quantizations,omitempty"`

	// RequireParameters restricts routing to providers supporting every
	// requested parameter. Unset defaults to true so a requested
	// response_format is honored or the call fails loudly.
	RequireParameters *bool `json:"require_parameters,omitempty" yaml:"require_parameters,omitempty"`
}

// LLMConfig holds settings for the chat-completion gateway.
type LLMConfig struct {
	// Provider is the provider label (e.g. "openrouter").
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the bearer token for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the model identifier.
	Model string `json:"model" yaml:"model"`

	// MaxTokens caps the response length (default 2000).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature in [0,2] (default 0.3).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxRetries is the per-stage attempt budget, minimum 1 (default 3).
	// 1 is the degenerate no-retry case.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Routing carries optional provider-routing hints.
	Routing *ProviderRouting `json:"routing,omitempty" yaml:"routing,omitempty"`
}

// ParserConfig holds settings for PDF text extraction.
type ParserConfig struct {
	// MaxPages is the page limit per PDF (default 10).
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// CacheDir is the directory for cached parse results (default ".cache/parsed").
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`
}

// ProcessingConfig controls batch behavior.
type ProcessingConfig struct {
	// BatchSize is the number of papers handled per run (default 5).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// DryRun previews changes without writing back to Zotero.
	DryRun bool `json:"dry_run" yaml:"dry_run"`

	// AddSummaryNote attaches the rendered summary note (default true).
	AddSummaryNote bool `json:"add_summary_note" yaml:"add_summary_note"`
}

// CollectionDef is a catalog entry describing one target collection.
// Read-only input to prompt construction and reconciliation.
type CollectionDef struct {
	// Name is the collection name as it appears in Zotero.
	Name string `json:"name" yaml:"name"`

	// Description tells the model what belongs here.
	Description string `json:"description" yaml:"description"`

	// Keywords are optional hints that suggest this collection.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// TagDef is a catalog entry describing one tag.
type TagDef struct {
	// Name is the tag name.
	Name string `json:"name" yaml:"name"`

	// Description tells the model when to apply the tag.
	Description string `json:"description" yaml:"description"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Zotero      ZoteroConfig     `json:"zotero" yaml:"zotero"`
	WebDAV      *WebDAVConfig    `json:"webdav,omitempty" yaml:"webdav,omitempty"`
	LLM         LLMConfig        `json:"llm" yaml:"llm"`
	Parser      ParserConfig     `json:"parser" yaml:"parser"`
	Processing  ProcessingConfig `json:"processing" yaml:"processing"`
	Collections []CollectionDef  `json:"collections" yaml:"collections"`
	Tags        []TagDef         `json:"tags" yaml:"tags"`
}
