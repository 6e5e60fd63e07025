package tables

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Directive describes which cells of which table to extract.
type Directive struct {
	HasHeader        bool         `json:"has_header" yaml:"has_header"`
	ExpectedHeaders  []string     `json:"expected_headers" yaml:"expected_headers"`
	TableNum         int          `json:"table_num" yaml:"table_num"`
	PageNum          int          `json:"page_num" yaml:"page_num"`
	EntityExtraction []EntityItem `json:"entity_extraction" yaml:"entity_extraction"`
}

// EntityItem addresses one body cell by 0-based row and column. A non-empty
// EntitySuffix is appended to the column label to form the entity name.
type EntityItem struct {
	Col          int    `json:"col" yaml:"col"`
	RowNo        int    `json:"row_no" yaml:"row_no"`
	EntitySuffix string `json:"entity_suffix" yaml:"entity_suffix"`
}

// Target is the way a directive addresses its table.
type Target int

const (
	// TargetNoHeader directives declare no header and cannot be resolved.
	TargetNoHeader Target = iota
	// TargetExact addresses a table by page and table number.
	TargetExact
	// TargetSearchAll searches every page for a matching table.
	TargetSearchAll
	// TargetSearchPage searches a single page for a matching table.
	TargetSearchPage
	// TargetInvalid is any other page/table combination.
	TargetInvalid
)

func (t Target) String() string {
	switch t {
	case TargetNoHeader:
		return "no_header"
	case TargetExact:
		return "exact"
	case TargetSearchAll:
		return "search_all"
	case TargetSearchPage:
		return "search_page"
	default:
		return "invalid"
	}
}

// Target classifies the directive's page/table combination.
func (d *Directive) Target() Target {
	switch {
	case !d.HasHeader:
		return TargetNoHeader
	case d.PageNum > 0 && d.TableNum > 0:
		return TargetExact
	case d.PageNum == 0 && d.TableNum == 0:
		return TargetSearchAll
	case d.PageNum > 0 && d.TableNum == 0:
		return TargetSearchPage
	default:
		return TargetInvalid
	}
}

// Validate reports configuration problems. Resolution never fails on an
// invalid directive; callers use Validate to surface warnings early.
func (d *Directive) Validate() error {
	switch d.Target() {
	case TargetNoHeader:
		return &DirectiveConfigError{PageNum: d.PageNum, TableNum: d.TableNum, Reason: "directive declares no header"}
	case TargetInvalid:
		return &DirectiveConfigError{PageNum: d.PageNum, TableNum: d.TableNum, Reason: "unsupported page/table combination"}
	}
	if len(d.ExpectedHeaders) == 0 {
		return &DirectiveConfigError{PageNum: d.PageNum, TableNum: d.TableNum, Reason: "expected_headers is empty"}
	}
	for i, item := range d.EntityExtraction {
		if item.Col < 0 || item.Col >= len(d.ExpectedHeaders) {
			return &DirectiveConfigError{
				PageNum:  d.PageNum,
				TableNum: d.TableNum,
				Reason:   fmt.Sprintf("entity item %d: col %d outside expected_headers", i, item.Col),
			}
		}
		if item.RowNo < 0 {
			return &DirectiveConfigError{
				PageNum:  d.PageNum,
				TableNum: d.TableNum,
				Reason:   fmt.Sprintf("entity item %d: negative row_no %d", i, item.RowNo),
			}
		}
	}
	return nil
}

// directiveFields accepts both the current keys and the legacy
// isheader/headers keys of older parser configurations.
type directiveFields struct {
	HasHeader        *bool        `json:"has_header" yaml:"has_header"`
	IsHeader         *bool        `json:"isheader" yaml:"isheader"`
	ExpectedHeaders  []string     `json:"expected_headers" yaml:"expected_headers"`
	Headers          []string     `json:"headers" yaml:"headers"`
	TableNum         *int         `json:"table_num" yaml:"table_num"`
	PageNum          *int         `json:"page_num" yaml:"page_num"`
	EntityExtraction []EntityItem `json:"entity_extraction" yaml:"entity_extraction"`
}

func (f *directiveFields) directive() Directive {
	d := Directive{
		ExpectedHeaders:  f.ExpectedHeaders,
		EntityExtraction: f.EntityExtraction,
	}
	switch {
	case f.HasHeader != nil:
		d.HasHeader = *f.HasHeader
	case f.IsHeader != nil:
		d.HasHeader = *f.IsHeader
	}
	if d.ExpectedHeaders == nil {
		d.ExpectedHeaders = f.Headers
	}
	if f.TableNum != nil {
		d.TableNum = *f.TableNum
	}
	if f.PageNum != nil {
		d.PageNum = *f.PageNum
	}
	return d
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Directive) UnmarshalJSON(data []byte) error {
	var f directiveFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*d = f.directive()
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Directive) UnmarshalYAML(node *yaml.Node) error {
	var f directiveFields
	if err := node.Decode(&f); err != nil {
		return err
	}
	*d = f.directive()
	return nil
}
