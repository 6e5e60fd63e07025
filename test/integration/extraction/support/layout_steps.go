package support

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/MeKo-Tech/docflow/internal/layout"
	"github.com/MeKo-Tech/docflow/internal/tables"
	"github.com/cucumber/godog"
)

// RegisterLayoutSteps registers the steps that build the layout document
// and the directives.
func (testCtx *TestContext) RegisterLayoutSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a page of (\d+) by (\d+) pixels$`, testCtx.aPageOfPixels)
	sc.Step(`^the page has a table:$`, testCtx.thePageHasATable)
	sc.Step(`^the page has a table without header rows:$`, testCtx.thePageHasATableWithoutHeaderRows)
	sc.Step(`^a layout with no tables$`, testCtx.aLayoutWithNoTables)
	sc.Step(`^the directives:$`, testCtx.theDirectives)
}

func (testCtx *TestContext) aPageOfPixels(width, height int) error {
	testCtx.Builder.Page(float64(width), float64(height))
	return nil
}

// thePageHasATable adds a table whose first data table row is the header.
func (testCtx *TestContext) thePageHasATable(table *godog.Table) error {
	rows := tableRows(table)
	if len(rows) == 0 {
		return errors.New("table needs a header row")
	}
	testCtx.Builder.Table(rows[0], rows[1:])
	return nil
}

func (testCtx *TestContext) thePageHasATableWithoutHeaderRows(table *godog.Table) error {
	tbl := layout.Table{}
	for _, r := range tableRows(table) {
		tbl.BodyRows = append(tbl.BodyRows, testCtx.Builder.Row(r...))
	}
	testCtx.Builder.RawTable(tbl)
	return nil
}

func (testCtx *TestContext) aLayoutWithNoTables() error {
	testCtx.Builder.Page(612, 792)
	return nil
}

func (testCtx *TestContext) theDirectives(doc *godog.DocString) error {
	directives, err := tables.ParseDirectives([]byte(doc.Content), "yaml")
	if err != nil {
		return fmt.Errorf("failed to parse directives: %w", err)
	}
	testCtx.Directives = directives
	return nil
}

func tableRows(table *godog.Table) [][]string {
	rows := make([][]string, 0, len(table.Rows))
	for _, r := range table.Rows {
		cells := make([]string, 0, len(r.Cells))
		for _, c := range r.Cells {
			cells = append(cells, c.Value)
		}
		rows = append(rows, cells)
	}
	return rows
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v, nil
}
