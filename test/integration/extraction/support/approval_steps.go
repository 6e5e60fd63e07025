package support

import (
	"fmt"

	"github.com/MeKo-Tech/docflow/internal/approval"
	"github.com/MeKo-Tech/docflow/internal/tables"
	"github.com/cucumber/godog"
)

// RegisterApprovalSteps registers the auto-approval steps.
func (testCtx *TestContext) RegisterApprovalSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the document is a "([^"]*)" scoring ([0-9.]+) on validation and ([0-9.]+) on matching$`, testCtx.theDocumentIsScoring)
	sc.Step(`^the document is a "([^"]*)" with only the extraction score$`, testCtx.theDocumentHasOnlyExtraction)
	sc.Step(`^the approval status is "([^"]*)"$`, testCtx.theApprovalStatusIs)
	sc.Step(`^the document is( not)? auto-approved$`, testCtx.theDocumentIsAutoApproved)
}

func (testCtx *TestContext) evaluate(class string, scores approval.Scores) {
	score := tables.ExtractionScore(testCtx.Records)
	scores.Extraction = &score
	testCtx.Decision = testCtx.Rules.Evaluate(class, scores)
}

func (testCtx *TestContext) theDocumentIsScoring(class, validation, matching string) error {
	v, err := parseFloat(validation)
	if err != nil {
		return err
	}
	m, err := parseFloat(matching)
	if err != nil {
		return err
	}
	testCtx.evaluate(class, approval.Scores{Validation: &v, Matching: &m})
	return nil
}

func (testCtx *TestContext) theDocumentHasOnlyExtraction(class string) error {
	testCtx.evaluate(class, approval.Scores{})
	return nil
}

func (testCtx *TestContext) theApprovalStatusIs(status string) error {
	if testCtx.Decision.Status != status {
		return fmt.Errorf("expected approval status %q, got %q", status, testCtx.Decision.Status)
	}
	return nil
}

func (testCtx *TestContext) theDocumentIsAutoApproved(not string) error {
	want := "yes"
	if not != "" {
		want = "no"
	}
	if testCtx.Decision.IsAutoApproved != want {
		return fmt.Errorf("expected is_autoapproved %q, got %q", want, testCtx.Decision.IsAutoApproved)
	}
	return nil
}
