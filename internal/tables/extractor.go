package tables

import (
	"fmt"

	"github.com/MeKo-Tech/docflow/internal/layout"
)

// Extractor owns a layout document and the index built from it.
type Extractor struct {
	index     *Index
	threshold float64
	failFast  bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithFailFast restores the abort-on-first-malformed-row indexing behaviour.
func WithFailFast(enabled bool) Option { return func(e *Extractor) { e.failFast = enabled } }

// WithMatchThreshold overrides MatchThreshold. Non-positive values are ignored.
func WithMatchThreshold(threshold float64) Option {
	return func(e *Extractor) {
		if threshold > 0 {
			e.threshold = threshold
		}
	}
}

// NewExtractor indexes doc eagerly.
func NewExtractor(doc *layout.Document, opts ...Option) *Extractor {
	e := &Extractor{threshold: MatchThreshold}
	for _, o := range opts {
		o(e)
	}
	e.index = BuildIndex(doc, IndexOptions{FailFast: e.failFast})
	indexedTables.Observe(float64(e.index.TableCount()))
	return e
}

// Open loads a layout JSON file and indexes it.
func Open(path string, opts ...Option) (*Extractor, error) {
	doc, err := layout.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open extractor: %w", err)
	}
	return NewExtractor(doc, opts...), nil
}

// Index returns the underlying table index.
func (e *Extractor) Index() *Index {
	return e.index
}

// GetEntities resolves a single directive.
func (e *Extractor) GetEntities(d Directive) []EntityRecord {
	return NewResolver(e.index, e.threshold).Resolve(d)
}

// ExtractAll resolves each directive in turn and concatenates the results.
func (e *Extractor) ExtractAll(directives []Directive) []EntityRecord {
	r := NewResolver(e.index, e.threshold)
	var out []EntityRecord
	for _, d := range directives {
		out = append(out, r.Resolve(d)...)
	}
	return out
}
