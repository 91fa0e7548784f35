package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Load loads configuration from an optional YAML file, then overrides
// with environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (QDRANT_HOST, LLM_API_KEY, CHUNKING_SIZE, ...)
//  2. YAML config file (when configPath is non-empty and exists)
//  3. Hardcoded defaults
//
// Environment variables are mapped section-first: the part before the
// first underscore selects the section, the rest is the field name.
//
//	QDRANT_API_KEY      -> qdrant.api_key
//	EMBEDDINGS_BASE_URL -> embeddings.base_url
//	CHUNKING_SIZE       -> chunking.size
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
			}
		} else {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// sections are the recognized top-level config sections. Only variables
// whose prefix matches a section are mapped; everything else in the
// process environment is ignored.
var sections = map[string]bool{
	"logging":    true,
	"qdrant":     true,
	"local":      true,
	"embeddings": true,
	"llm":        true,
	"chunking":   true,
	"retrieval":  true,
	"corpus":     true,
	"telemetry":  true,
}

// envTransform maps SECTION_FIELD_NAME to section.field_name.
func envTransform(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) != 2 || !sections[parts[0]] {
		return "" // skip unrelated environment variables
	}
	return parts[0] + "." + parts[1]
}
