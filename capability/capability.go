// Package capability answers whether a provider/model pair supports native
// function calling. The answer decides, once per client, whether tool use
// goes over the native wire field or through fallback markup parsing.
//
// Rules match models with doublestar glob patterns, first match wins, and a
// table can be loaded from YAML:
//
//	rules:
//	  - provider: ollama
//	    model: "llama3*"
//	    native: true
//	  - provider: ollama
//	    model: "*"
//	    native: false
package capability

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Rule maps a provider and a model glob pattern to tool support.
type Rule struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Native   bool   `yaml:"native"`
}

// Registry holds an ordered rule table. The zero value matches nothing;
// construct with NewRegistry or Default.
type Registry struct {
	rules []Rule
}

// NewRegistry creates a registry with the given rules, evaluated in order.
func NewRegistry(rules ...Rule) *Registry {
	return &Registry{rules: rules}
}

// Default returns the built-in table: the hosted APIs all support native
// tool calling, while local models do unless known otherwise.
func Default() *Registry {
	return NewRegistry(
		Rule{Provider: "openai", Model: "*", Native: true},
		Rule{Provider: "anthropic", Model: "*", Native: true},
		Rule{Provider: "gemini", Model: "*", Native: true},
		Rule{Provider: "ollama", Model: "llama3.{1,2,3}*", Native: true},
		Rule{Provider: "ollama", Model: "llama3-groq-tool-use*", Native: true},
		Rule{Provider: "ollama", Model: "qwen{2,2.5,3}*", Native: true},
		Rule{Provider: "ollama", Model: "mistral*", Native: true},
		Rule{Provider: "ollama", Model: "command-r*", Native: true},
		Rule{Provider: "ollama", Model: "firefunction*", Native: true},
		Rule{Provider: "ollama", Model: "*", Native: false},
	)
}

// Supports reports native tool support for the pair. The second return is
// false when no rule matches, in which case the caller should assume no
// native support.
func (r *Registry) Supports(providerName, model string) (native, ok bool) {
	for _, rule := range r.rules {
		if rule.Provider != providerName {
			continue
		}
		matched, err := doublestar.Match(rule.Model, model)
		if err != nil {
			continue
		}
		if matched {
			return rule.Native, true
		}
	}
	return false, false
}

// yamlTable is the on-disk shape.
type yamlTable struct {
	Rules []Rule `yaml:"rules"`
}

// Load parses a YAML rule table.
func Load(data []byte) (*Registry, error) {
	var table yamlTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing capability table: %w", err)
	}
	for i, rule := range table.Rules {
		if rule.Provider == "" || rule.Model == "" {
			return nil, fmt.Errorf("capability rule %d: provider and model are required", i)
		}
		if !doublestar.ValidatePattern(rule.Model) {
			return nil, fmt.Errorf("capability rule %d: bad model pattern %q", i, rule.Model)
		}
	}
	return NewRegistry(table.Rules...), nil
}

// LoadFile reads a YAML rule table from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading capability table: %w", err)
	}
	return Load(data)
}
