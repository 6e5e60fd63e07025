package tables

import (
	"log/slog"
	"slices"
)

// EntityRecord is one extracted entity.
type EntityRecord struct {
	Entity string `json:"entity"`
	CellRecord
	KeyCoordinates []float64 `json:"key_coordinates"`
	PageHeight     float64   `json:"page_height"`
	PageWidth      float64   `json:"page_width"`
	PageNo         *int      `json:"page_no"`
}

// Resolver resolves directives against an index.
type Resolver struct {
	idx       *Index
	threshold float64
}

// NewResolver returns a resolver that accepts tables scoring at least
// threshold. A non-positive threshold selects MatchThreshold.
func NewResolver(idx *Index, threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = MatchThreshold
	}
	return &Resolver{idx: idx, threshold: threshold}
}

// ResolveDirective resolves d against idx with the default match threshold.
func ResolveDirective(idx *Index, d Directive) []EntityRecord {
	return NewResolver(idx, MatchThreshold).Resolve(d)
}

// Resolve returns the records for every entity item of d, in input order.
// When no table can be resolved every item yields a placeholder record;
// otherwise items that point outside the table are dropped.
func (r *Resolver) Resolve(d Directive) []EntityRecord {
	target := d.Target()
	table, err := r.locate(d, target)
	if err != nil {
		directivesTotal.WithLabelValues(target.String(), "not_found").Inc()
		return r.notFound(d)
	}
	directivesTotal.WithLabelValues(target.String(), "resolved").Inc()

	out := make([]EntityRecord, 0, len(d.EntityExtraction))
	for i, item := range d.EntityExtraction {
		rec, err := entityFromTable(table, i, item)
		if err != nil {
			slog.Warn("skipping entity item", "error", err)
			entitiesTotal.WithLabelValues("skipped").Inc()
			continue
		}
		entitiesTotal.WithLabelValues("resolved").Inc()
		out = append(out, rec)
	}
	return out
}

func (r *Resolver) locate(d Directive, target Target) (*TableEntry, error) {
	switch target {
	case TargetNoHeader:
		slog.Error("no header present in the table, table not extracted")
		return nil, ErrTableNotFound

	case TargetExact:
		table, ok := r.idx.Table(d.PageNum, d.TableNum)
		if !ok {
			slog.Error("table not found", "page_num", d.PageNum, "table_num", d.TableNum)
			return nil, ErrTableNotFound
		}
		if !headersMatch(table, d.ExpectedHeaders, r.threshold) {
			slog.Error("table does not match the headers provided",
				"page_num", d.PageNum, "table_num", d.TableNum, "expected", d.ExpectedHeaders)
			return nil, ErrTableNotFound
		}
		return table, nil

	case TargetSearchAll:
		table, ok := r.idx.FindTable(d.ExpectedHeaders, r.threshold)
		if !ok {
			return nil, ErrTableNotFound
		}
		return table, nil

	case TargetSearchPage:
		page, ok := r.idx.Page(d.PageNum)
		if !ok {
			slog.Error("page not found", "page_num", d.PageNum)
			return nil, ErrTableNotFound
		}
		table, ok := page.FindTable(d.ExpectedHeaders, r.threshold)
		if !ok {
			return nil, ErrTableNotFound
		}
		return table, nil

	default:
		err := &DirectiveConfigError{PageNum: d.PageNum, TableNum: d.TableNum, Reason: "unsupported page/table combination"}
		slog.Error("operation cannot be performed, check the directive", "error", err)
		return nil, err
	}
}

func entityFromTable(table *TableEntry, i int, item EntityItem) (EntityRecord, error) {
	if item.Col < 0 || item.Col >= len(table.Headers) {
		return EntityRecord{}, &ItemResolutionError{Item: i, Row: item.RowNo, Col: item.Col, Reason: "column outside table header"}
	}
	cell, ok := table.Cell(item.RowNo, item.Col)
	if !ok {
		return EntityRecord{}, &ItemResolutionError{Item: i, Row: item.RowNo, Col: item.Col, Reason: "no such body cell"}
	}
	header := table.Headers[item.Col]
	pageNo := table.PageNum
	return EntityRecord{
		Entity:         entityName(header.Label, item.EntitySuffix),
		CellRecord:     cell,
		KeyCoordinates: slices.Clone(header.Coordinates),
		PageHeight:     table.PageHeight,
		PageWidth:      table.PageWidth,
		PageNo:         &pageNo,
	}, nil
}

// notFound emits a placeholder for every item, labelled from the expected
// headers and sized from the first page.
func (r *Resolver) notFound(d Directive) []EntityRecord {
	width, height := r.idx.FallbackSize()
	out := make([]EntityRecord, 0, len(d.EntityExtraction))
	for i, item := range d.EntityExtraction {
		if reason := placeholderProblem(d, item); reason != "" {
			slog.Error("cannot build placeholder for entity item",
				"error", &ItemResolutionError{Item: i, Row: item.RowNo, Col: item.Col, Reason: reason})
			entitiesTotal.WithLabelValues("skipped").Inc()
			continue
		}
		entitiesTotal.WithLabelValues("placeholder").Inc()
		out = append(out, EntityRecord{
			Entity:     entityName(d.ExpectedHeaders[item.Col], item.EntitySuffix),
			PageHeight: height,
			PageWidth:  width,
		})
	}
	return out
}

// placeholderProblem explains why item cannot be labelled from d's expected
// headers, or returns "".
func placeholderProblem(d Directive, item EntityItem) string {
	switch {
	case !d.HasHeader:
		return "directive declares no header"
	case item.Col < 0 || item.Col >= len(d.ExpectedHeaders):
		return "column outside expected headers"
	default:
		return ""
	}
}

func entityName(label, suffix string) string {
	if suffix == "" {
		return label
	}
	return label + " " + suffix
}
