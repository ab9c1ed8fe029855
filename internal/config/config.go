// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads and validates the application configuration from a
// YAML file. ${VAR} references in the file are substituted from the
// environment first, then from the secrets directory, before the YAML is
// parsed, so credentials never need to live in the config file itself.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperflow/pkg/types"
)

var varRE = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads the YAML config at path, substitutes ${VAR} references, and
// unmarshals over defaults. A .env file in the working directory is loaded
// into the environment first when present. secrets maps kebab-case key
// names (as in the secrets directory) to values; a ${OPENROUTER_API_KEY}
// reference falls back to the "openrouter-api-key" secret when the
// environment has no such variable.
func Load(path string, secrets map[string]string) (*types.AppConfig, error) {
	// Best effort: a missing .env is the common case.
	godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	substituted, err := substitute(string(data), secrets)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(substituted), cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns an AppConfig pre-populated with default values, so that
// keys absent from the YAML keep sensible settings.
func Defaults() *types.AppConfig {
	return &types.AppConfig{
		Zotero: types.ZoteroConfig{
			LibraryType:     "user",
			InboxCollection: "Inbox",
		},
		LLM: types.LLMConfig{
			Provider:    "openrouter",
			MaxTokens:   2000,
			Temperature: 0.3,
			MaxRetries:  3,
		},
		Parser: types.ParserConfig{
			MaxPages: 10,
			CacheDir: ".cache/parsed",
		},
		Processing: types.ProcessingConfig{
			BatchSize:      5,
			AddSummaryNote: true,
		},
	}
}

// substitute replaces every ${VAR} with the environment value, falling back
// to the secrets map under the kebab-case form of the name. An unresolvable
// reference is an error: a silently empty API key fails much later and much
// more confusingly.
func substitute(text string, secrets map[string]string) (string, error) {
	var missing []string
	out := varRE.ReplaceAllStringFunc(text, func(ref string) string {
		name := varRE.FindStringSubmatch(ref)[1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if v, ok := secrets[secretName(name)]; ok {
			return v
		}
		missing = append(missing, name)
		return ref
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unresolved config variables: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// secretName maps UPPER_SNAKE variable names to the kebab-case filenames
// used in the secrets directory: OPENROUTER_API_KEY -> openrouter-api-key.
func secretName(envName string) string {
	return strings.ReplaceAll(strings.ToLower(envName), "_", "-")
}

// Validate checks the fields without which the pipeline cannot run.
func Validate(cfg *types.AppConfig) error {
	var problems []string

	if cfg.Zotero.LibraryID == "" {
		problems = append(problems, "zotero.library_id is required")
	}
	if cfg.Zotero.LibraryType != "user" && cfg.Zotero.LibraryType != "group" {
		problems = append(problems, fmt.Sprintf("zotero.library_type must be user or group, got %q", cfg.Zotero.LibraryType))
	}
	if cfg.Zotero.APIKey == "" {
		problems = append(problems, "zotero.api_key is required")
	}
	if cfg.LLM.Model == "" {
		problems = append(problems, "llm.model is required")
	}
	if cfg.LLM.APIKey == "" {
		problems = append(problems, "llm.api_key is required")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		problems = append(problems, fmt.Sprintf("llm.temperature must be in [0, 2], got %g", cfg.LLM.Temperature))
	}
	if w := cfg.WebDAV; w != nil {
		if w.URL == "" || w.Username == "" || w.Password == "" {
			problems = append(problems, "webdav requires url, username and password")
		}
	}
	if len(cfg.Collections) == 0 {
		problems = append(problems, "at least one collection must be defined")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
