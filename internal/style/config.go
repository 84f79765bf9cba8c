package style

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the optional style configuration for filtering
// elements beyond the tag filter expression.
type Config struct {
	// Nodes configuration for node records
	Nodes *FilterConfig `yaml:"nodes,omitempty"`
	// Ways configuration for way records
	Ways *FilterConfig `yaml:"ways,omitempty"`
	// Relations configuration for relation records
	Relations *FilterConfig `yaml:"relations,omitempty"`
}

// FilterConfig defines filtering rules for one element kind.
type FilterConfig struct {
	// Include specifies which tag keys/values to include.
	// If empty, all tags are included (no filtering).
	Include map[string][]string `yaml:"include,omitempty"`
	// Exclude specifies which tag keys/values to exclude.
	// Applied after include rules.
	Exclude map[string][]string `yaml:"exclude,omitempty"`
	// RequireAny specifies that at least one of these tags must be present.
	RequireAny []string `yaml:"require_any,omitempty"`
}

// LoadConfig loads a style configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse style YAML: %w", err)
	}

	return &cfg, nil
}

// Filter checks if tags match the filter configuration.
type Filter struct {
	cfg *FilterConfig
}

// NewFilter creates a filter from configuration.
func NewFilter(cfg *FilterConfig) *Filter {
	if cfg == nil {
		return &Filter{cfg: &FilterConfig{}}
	}
	return &Filter{cfg: cfg}
}

// Match checks if the given tags match the filter rules.
// Returns true if the element should be included.
func (f *Filter) Match(tags map[string]string) bool {
	if f.cfg == nil {
		return true
	}

	if len(f.cfg.RequireAny) > 0 {
		found := false
		for _, key := range f.cfg.RequireAny {
			if _, ok := tags[key]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.cfg.Include) > 0 {
		matched := false
		for key, values := range f.cfg.Include {
			if tagValue, ok := tags[key]; ok {
				if len(values) == 0 {
					matched = true
					break
				}
				for _, v := range values {
					if v == tagValue || v == "*" {
						matched = true
						break
					}
				}
				if matched {
					break
				}
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.cfg.Exclude) > 0 {
		for key, values := range f.cfg.Exclude {
			if tagValue, ok := tags[key]; ok {
				if len(values) == 0 {
					return false
				}
				for _, v := range values {
					if v == tagValue || v == "*" {
						return false
					}
				}
			}
		}
	}

	return true
}

// HasFilter returns true if filtering is enabled.
func (f *Filter) HasFilter() bool {
	if f.cfg == nil {
		return false
	}
	return len(f.cfg.Include) > 0 || len(f.cfg.Exclude) > 0 || len(f.cfg.RequireAny) > 0
}
