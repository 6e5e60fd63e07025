package support

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/docflow/internal/tables"
	"github.com/cucumber/godog"
	"github.com/stretchr/testify/assert"
)

// RegisterExtractionSteps registers the steps that run the extractor and
// inspect its records.
func (testCtx *TestContext) RegisterExtractionSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I extract the entities$`, testCtx.iExtractTheEntities)
	sc.Step(`^I extract the entities again$`, testCtx.iExtractTheEntitiesAgain)
	sc.Step(`^(\d+) entit(?:y is|ies are) returned$`, testCtx.entitiesAreReturned)
	sc.Step(`^entity (\d+) is "([^"]*)" with value "([^"]*)"$`, testCtx.entityIsWithValue)
	sc.Step(`^entity (\d+) is "([^"]*)" without a value$`, testCtx.entityIsWithoutAValue)
	sc.Step(`^entity (\d+) is on page (\d+)$`, testCtx.entityIsOnPage)
	sc.Step(`^entity (\d+) has no page number$`, testCtx.entityHasNoPageNumber)
	sc.Step(`^entity (\d+) has a page size of (\d+) by (\d+)$`, testCtx.entityHasPageSize)
	sc.Step(`^no entity is manually extracted or corrected$`, testCtx.noEntityIsManuallyExtracted)
	sc.Step(`^the extraction status is "([^"]*)"$`, testCtx.theExtractionStatusIs)
	sc.Step(`^the extraction score is ([0-9.]+)$`, testCtx.theExtractionScoreIs)
	sc.Step(`^both extractions are equal$`, testCtx.bothExtractionsAreEqual)
	sc.Step(`^the index holds (\d+) tables?$`, testCtx.theIndexHoldsTables)
}

func (testCtx *TestContext) extract() {
	testCtx.Extractor = tables.NewExtractor(testCtx.Builder.Build())
	testCtx.Records = testCtx.Extractor.ExtractAll(testCtx.Directives)
}

func (testCtx *TestContext) iExtractTheEntities() error {
	testCtx.extract()
	return nil
}

func (testCtx *TestContext) iExtractTheEntitiesAgain() error {
	testCtx.Previous = testCtx.Records
	testCtx.extract()
	return nil
}

func (testCtx *TestContext) entitiesAreReturned(n int) error {
	if len(testCtx.Records) != n {
		return fmt.Errorf("expected %d entities, got %d", n, len(testCtx.Records))
	}
	return nil
}

// record returns the 1-based n-th record.
func (testCtx *TestContext) record(n int) (tables.EntityRecord, error) {
	if n < 1 || n > len(testCtx.Records) {
		return tables.EntityRecord{}, fmt.Errorf("entity %d out of range, have %d", n, len(testCtx.Records))
	}
	return testCtx.Records[n-1], nil
}

func (testCtx *TestContext) entityIsWithValue(n int, name, value string) error {
	rec, err := testCtx.record(n)
	if err != nil {
		return err
	}
	if rec.Entity != name {
		return fmt.Errorf("expected entity %q, got %q", name, rec.Entity)
	}
	if rec.Value == nil {
		return fmt.Errorf("entity %q has no value", name)
	}
	if *rec.Value != value {
		return fmt.Errorf("expected value %q, got %q", value, *rec.Value)
	}
	return nil
}

func (testCtx *TestContext) entityIsWithoutAValue(n int, name string) error {
	rec, err := testCtx.record(n)
	if err != nil {
		return err
	}
	if rec.Entity != name {
		return fmt.Errorf("expected entity %q, got %q", name, rec.Entity)
	}
	if rec.Value != nil {
		return fmt.Errorf("expected no value, got %q", *rec.Value)
	}
	if rec.ExtractionConfidence != nil {
		return fmt.Errorf("expected no confidence, got %v", *rec.ExtractionConfidence)
	}
	return nil
}

func (testCtx *TestContext) entityIsOnPage(n, page int) error {
	rec, err := testCtx.record(n)
	if err != nil {
		return err
	}
	if rec.PageNo == nil {
		return fmt.Errorf("entity %d has no page number", n)
	}
	if *rec.PageNo != page {
		return fmt.Errorf("expected page %d, got %d", page, *rec.PageNo)
	}
	return nil
}

func (testCtx *TestContext) entityHasNoPageNumber(n int) error {
	rec, err := testCtx.record(n)
	if err != nil {
		return err
	}
	if rec.PageNo != nil {
		return fmt.Errorf("expected no page number, got %d", *rec.PageNo)
	}
	return nil
}

func (testCtx *TestContext) entityHasPageSize(n, width, height int) error {
	rec, err := testCtx.record(n)
	if err != nil {
		return err
	}
	if rec.PageWidth != float64(width) || rec.PageHeight != float64(height) {
		return fmt.Errorf("expected page size %dx%d, got %vx%v", width, height, rec.PageWidth, rec.PageHeight)
	}
	return nil
}

func (testCtx *TestContext) noEntityIsManuallyExtracted() error {
	for _, rec := range testCtx.Records {
		if rec.ManualExtraction || rec.CorrectedValue != nil {
			return fmt.Errorf("entity %q carries review fields", rec.Entity)
		}
	}
	return nil
}

func (testCtx *TestContext) theExtractionStatusIs(status string) error {
	if got := tables.ExtractionStatus(testCtx.Records); got != status {
		return fmt.Errorf("expected extraction status %q, got %q", status, got)
	}
	return nil
}

func (testCtx *TestContext) theExtractionScoreIs(s string) error {
	want, err := parseFloat(s)
	if err != nil {
		return err
	}
	if got := tables.ExtractionScore(testCtx.Records); math.Abs(got-want) > 1e-9 {
		return fmt.Errorf("expected extraction score %v, got %v", want, got)
	}
	return nil
}

func (testCtx *TestContext) bothExtractionsAreEqual() error {
	if !assert.ObjectsAreEqual(testCtx.Previous, testCtx.Records) {
		return fmt.Errorf("extractions differ:\n%v\n%v", testCtx.Previous, testCtx.Records)
	}
	return nil
}

func (testCtx *TestContext) theIndexHoldsTables(n int) error {
	if testCtx.Extractor == nil {
		return fmt.Errorf("no extraction has run")
	}
	if got := testCtx.Extractor.Index().TableCount(); got != n {
		return fmt.Errorf("expected %d indexed tables, got %d", n, got)
	}
	return nil
}
