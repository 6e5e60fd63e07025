package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNoPages is reported when a layout document has no "pages" field.
var ErrNoPages = errors.New("layout has no pages")

// Load reads and parses a layout JSON file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user input by design of the CLI
	if err != nil {
		return nil, fmt.Errorf("failed to read layout %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a layout document from JSON bytes.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Decode reads a layout document from r.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
