// Package tables reconstructs header/row/column structure from the tables of
// a layout document and resolves caller-declared cell coordinates into
// entity records.
//
// An Index is built once per document by BuildIndex. Directives are then
// resolved against it: the target table is either addressed directly by
// page and table number or searched for by comparing its header labels with
// the directive's expected headers. The first table whose header match score
// reaches MatchThreshold wins; tables are visited page by page, in ascending
// page and table order.
//
// Page and table numbers are 1-based; 0 means "not specified, search".
// Row and column positions inside a table are 0-based.
//
// An Index is read-only after construction and safe for concurrent use.
// Every record handed out is a copy.
package tables
