package tables

import (
	"errors"
	"fmt"
)

// ErrTableNotFound is reported when no table satisfies a directive.
var ErrTableNotFound = errors.New("table not found")

// StructuralError reports a layout that lacks a required top-level field.
type StructuralError struct {
	Field string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("layout has no %q field", e.Field)
}

// RowProcessingError reports a body row that cannot be mapped onto the
// table's header columns.
type RowProcessingError struct {
	Page    int
	Table   int
	Row     int
	Cells   int
	Columns int
}

func (e *RowProcessingError) Error() string {
	return fmt.Sprintf("page %d table %d: body row %d has %d cells, header has %d columns",
		e.Page, e.Table, e.Row, e.Cells, e.Columns)
}

// DirectiveConfigError reports a directive that cannot address any table.
type DirectiveConfigError struct {
	PageNum  int
	TableNum int
	Reason   string
}

func (e *DirectiveConfigError) Error() string {
	return fmt.Sprintf("invalid directive (page_num=%d, table_num=%d): %s", e.PageNum, e.TableNum, e.Reason)
}

// ItemResolutionError reports an entity_extraction item that cannot be
// resolved or labelled.
type ItemResolutionError struct {
	Item   int
	Row    int
	Col    int
	Reason string
}

func (e *ItemResolutionError) Error() string {
	return fmt.Sprintf("entity item %d (row %d, col %d): %s", e.Item, e.Row, e.Col, e.Reason)
}
