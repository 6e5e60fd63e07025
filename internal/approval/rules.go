// Package approval decides whether a processed document can be approved
// without human review, from its validation, matching and extraction scores.
package approval

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Score names used as rule keys.
const (
	ScoreValidation = "Validation_Score"
	ScoreMatching   = "Matching_Score"
	ScoreExtraction = "Extraction_Score"
)

// Thresholds maps score names to their minimum values. Scores not listed
// are not checked.
type Thresholds map[string]float64

// ClassRules holds the rule sets of one document class. Accept rules are
// tried in order; any score below its Reject threshold rejects.
type ClassRules struct {
	Accept1 Thresholds `yaml:"Accept1,omitempty" json:"Accept1,omitempty"`
	Accept2 Thresholds `yaml:"Accept2,omitempty" json:"Accept2,omitempty"`
	Reject  Thresholds `yaml:"Reject,omitempty" json:"Reject,omitempty"`
}

// Rules maps document classes to their rule sets.
type Rules map[string]ClassRules

// DefaultRules returns the built-in rules.
func DefaultRules() Rules {
	return Rules{
		"driver_license": {
			Accept1: Thresholds{ScoreValidation: 0.4, ScoreMatching: 0.8, ScoreExtraction: 0.3},
			Accept2: Thresholds{ScoreValidation: 0.6, ScoreMatching: 0.5, ScoreExtraction: 0.4},
			Reject:  Thresholds{ScoreValidation: 0.2, ScoreMatching: 0.2, ScoreExtraction: 0.2},
		},
		"utility_bill": {
			Accept1: Thresholds{ScoreValidation: 0.2, ScoreMatching: 0.4, ScoreExtraction: 0.6},
			Accept2: Thresholds{ScoreValidation: 0.5, ScoreMatching: 0.5, ScoreExtraction: 0.4},
			Reject:  Thresholds{ScoreValidation: 0.1, ScoreMatching: 0.2, ScoreExtraction: 0.3},
		},
		"pay_stub": {
			Accept1: Thresholds{ScoreValidation: 0.3, ScoreMatching: 0.5, ScoreExtraction: 0.5},
			Accept2: Thresholds{ScoreValidation: 0.5, ScoreMatching: 0.4, ScoreExtraction: 0.7},
			Reject:  Thresholds{ScoreValidation: 0.1, ScoreMatching: 0.1, ScoreExtraction: 0.1},
		},
		"unemployment_form": {
			Accept1: Thresholds{ScoreExtraction: 0.8},
			Reject:  Thresholds{ScoreExtraction: 0.5},
		},
		"claims_form": {
			Accept1: Thresholds{ScoreValidation: 0.4, ScoreMatching: 0.8, ScoreExtraction: 0.8},
			Accept2: Thresholds{ScoreValidation: 0.6, ScoreMatching: 0.5, ScoreExtraction: 0.8},
			Reject:  Thresholds{ScoreValidation: 0.2, ScoreMatching: 0.2, ScoreExtraction: 0.2},
		},
	}
}

// LoadRules reads a YAML rules file. Classes named in the file replace the
// built-in rules for that class; other built-in classes are kept.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read approval rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses YAML rules and merges them over the built-in rules.
func ParseRules(data []byte) (Rules, error) {
	var file Rules
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse approval rules: %w", err)
	}
	rules := DefaultRules()
	maps.Copy(rules, file)
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Validate checks score names and threshold ranges.
func (r Rules) Validate() error {
	known := []string{ScoreValidation, ScoreMatching, ScoreExtraction}
	for _, class := range slices.Sorted(maps.Keys(r)) {
		cr := r[class]
		for name, set := range map[string]Thresholds{"Accept1": cr.Accept1, "Accept2": cr.Accept2, "Reject": cr.Reject} {
			for score, v := range set {
				if !slices.Contains(known, score) {
					return fmt.Errorf("class %s rule %s: unknown score %q", class, name, score)
				}
				if v < 0 || v > 1 {
					return fmt.Errorf("class %s rule %s: %s threshold %.2f outside [0, 1]", class, name, score, v)
				}
			}
		}
	}
	return nil
}

// Classes returns the configured document classes in sorted order.
func (r Rules) Classes() []string {
	return slices.Sorted(maps.Keys(r))
}
