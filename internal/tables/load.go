package tables

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDirectives reads a directive file. Files ending in .json are decoded
// as JSON, everything else as YAML.
func LoadDirectives(path string) ([]Directive, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: directive file path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read directives: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	ds, err := ParseDirectives(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ParseDirectives decodes a list of directives, a single directive or an
// object with a "directives" list.
func ParseDirectives(data []byte, format string) ([]Directive, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no directives")
	}

	var list []Directive
	var wrapped struct {
		Directives []Directive `json:"directives" yaml:"directives"`
	}
	var single Directive
	switch format {
	case "json":
		if trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, fmt.Errorf("invalid directives: %w", err)
			}
			return list, nil
		}
		if err := json.Unmarshal(trimmed, &wrapped); err == nil && wrapped.Directives != nil {
			return wrapped.Directives, nil
		}
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("invalid directives: %w", err)
		}
	case "yaml":
		var node yaml.Node
		if err := yaml.Unmarshal(trimmed, &node); err != nil {
			return nil, fmt.Errorf("invalid directives: %w", err)
		}
		if len(node.Content) == 1 && node.Content[0].Kind == yaml.SequenceNode {
			if err := node.Decode(&list); err != nil {
				return nil, fmt.Errorf("invalid directives: %w", err)
			}
			return list, nil
		}
		if err := node.Decode(&wrapped); err == nil && wrapped.Directives != nil {
			return wrapped.Directives, nil
		}
		if err := node.Decode(&single); err != nil {
			return nil, fmt.Errorf("invalid directives: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported directive format %q", format)
	}
	return []Directive{single}, nil
}
