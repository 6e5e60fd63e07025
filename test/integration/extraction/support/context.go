package support

import (
	"github.com/MeKo-Tech/docflow/internal/approval"
	"github.com/MeKo-Tech/docflow/internal/tables"
	"github.com/MeKo-Tech/docflow/internal/testutil"
	"github.com/cucumber/godog"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Input state
	Builder    *testutil.LayoutBuilder
	Directives []tables.Directive
	Rules      approval.Rules

	// Extraction state
	Extractor *tables.Extractor
	Records   []tables.EntityRecord
	Previous  []tables.EntityRecord

	// Approval state
	Decision approval.Decision
}

// NewTestContext returns a context with an empty layout and the built-in
// approval rules.
func NewTestContext() *TestContext {
	return &TestContext{
		Builder: testutil.NewLayoutBuilder(),
		Rules:   approval.DefaultRules(),
	}
}

// Reset drops all scenario state.
func (testCtx *TestContext) Reset() {
	*testCtx = *NewTestContext()
}

// RegisterSteps wires every step definition into sc.
func (testCtx *TestContext) RegisterSteps(sc *godog.ScenarioContext) {
	testCtx.RegisterLayoutSteps(sc)
	testCtx.RegisterExtractionSteps(sc)
	testCtx.RegisterApprovalSteps(sc)
}
