// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads model API keys from a directory of plain-text files.
// Each file in the directory is one secret: the filename is the key name and
// the trimmed file contents are the value.
//
// Recognised key files: anthropic-api-key, gemini-api-key, openai-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/scholarmind/pkg/types"
)

// DefaultDir is where the CLI looks for key files.
const DefaultDir = ".secrets"

// Key file names, one per model provider.
const (
	AnthropicKey = "anthropic-api-key"
	GeminiKey    = "gemini-api-key"
	OpenAIKey    = "openai-api-key"
)

// envFallback lists the environment variables consulted when a key file is absent.
var envFallback = map[string]string{
	AnthropicKey: "ANTHROPIC_API_KEY",
	GeminiKey:    "GEMINI_API_KEY",
	OpenAIKey:    "OPENAI_API_KEY",
}

// Store is the set of loaded secrets.
type Store map[string]string

// Load reads all files in dir and returns them keyed by filename.
// A missing directory is not an error; Load returns an empty Store.
// Unreadable files are logged and skipped.
func Load(dir string, log zerolog.Logger) (Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Store)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			s[name] = value
		}
	}
	return s, nil
}

// KeyFileFor maps a model provider to its key file name.
func KeyFileFor(p types.AIProvider) string {
	switch p {
	case types.ProviderAnthropic:
		return AnthropicKey
	case types.ProviderOpenAI:
		return OpenAIKey
	default:
		return GeminiKey
	}
}

// APIKey returns the key for provider p, falling back to the provider's
// conventional environment variable.
func (s Store) APIKey(p types.AIProvider) string {
	name := KeyFileFor(p)
	if v := s[name]; v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(envFallback[name]))
}
